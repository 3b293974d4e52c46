package domain

import "testing"

func TestCategoryFromLabel(t *testing.T) {
	cases := map[string]Category{
		"Order":         CategoryOrder,
		" letters ":     CategoryLetters,
		"Постановление": CategoryOrdinance,
		"письмо":        CategoryLetters,
		"0":             CategoryOrder,
		"3":             CategoryMiscellaneous,
		"7":             CategoryMiscellaneous,
		"Invoice":       CategoryMiscellaneous,
		"":              CategoryMiscellaneous,
	}
	for raw, want := range cases {
		if got := CategoryFromLabel(raw); got != want {
			t.Fatalf("CategoryFromLabel(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseCategoryIsStrict(t *testing.T) {
	if c, ok := ParseCategory("Приказ"); !ok || c != CategoryOrder {
		t.Fatalf("expected Order, got %q %v", c, ok)
	}
	for _, raw := range []string{"", "0", "Invoice"} {
		if _, ok := ParseCategory(raw); ok {
			t.Fatalf("ParseCategory(%q) must fail", raw)
		}
	}
}

func TestLabelFallsBackToRussian(t *testing.T) {
	if got := CategoryMiscellaneous.Label(LocaleEN); got != "Miscellaneous" {
		t.Fatalf("unexpected en label %q", got)
	}
	if got := CategoryMiscellaneous.Label("de"); got != "Общее" {
		t.Fatalf("unexpected fallback label %q", got)
	}
	if got := Category("Other").Label(LocaleRU); got != "Other" {
		t.Fatalf("unknown categories keep their name, got %q", got)
	}
}

func TestParseLocale(t *testing.T) {
	cases := map[string]Locale{
		"en-US,en;q=0.9": LocaleEN,
		"RU":             LocaleRU,
		"ru-RU":          LocaleRU,
		"de":             "",
		"":               "",
	}
	for raw, want := range cases {
		if got := ParseLocale(raw); got != want {
			t.Fatalf("ParseLocale(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestArchiveResultCount(t *testing.T) {
	r := &ArchiveResult{Outcomes: []MemberOutcome{
		{Status: MemberProcessed}, {Status: MemberSkipped}, {Status: MemberSkipped},
	}}
	if r.Count(MemberSkipped) != 2 || r.Count(MemberFailed) != 0 {
		t.Fatalf("unexpected counts")
	}
}
