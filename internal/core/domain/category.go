package domain

import (
	"strconv"
	"strings"
)

// Category is one of the four fixed document classes. Values are stored in
// their canonical English form regardless of display language.
type Category string

const (
	CategoryOrder         Category = "Order"
	CategoryOrdinance     Category = "Ordinance"
	CategoryLetters       Category = "Letters"
	CategoryMiscellaneous Category = "Miscellaneous"
)

// Categories lists the fixed category set in folder order.
var Categories = []Category{
	CategoryOrder,
	CategoryOrdinance,
	CategoryLetters,
	CategoryMiscellaneous,
}

type Locale string

const (
	LocaleRU Locale = "ru"
	LocaleEN Locale = "en"
)

var localizedLabels = map[Locale]map[Category]string{
	LocaleRU: {
		CategoryOrder:         "Приказ",
		CategoryOrdinance:     "Постановление",
		CategoryLetters:       "Письмо",
		CategoryMiscellaneous: "Общее",
	},
	LocaleEN: {
		CategoryOrder:         "Order",
		CategoryOrdinance:     "Ordinance",
		CategoryLetters:       "Letters",
		CategoryMiscellaneous: "Miscellaneous",
	},
}

// clusterCategories maps clustering model output ids to categories.
var clusterCategories = map[int]Category{
	0: CategoryOrder,
	1: CategoryOrdinance,
	2: CategoryLetters,
	3: CategoryMiscellaneous,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryOrder, CategoryOrdinance, CategoryLetters, CategoryMiscellaneous:
		return true
	default:
		return false
	}
}

// Label returns the display label for the locale, falling back to Russian,
// which is the default display language of the dashboard.
func (c Category) Label(locale Locale) string {
	labels, ok := localizedLabels[locale]
	if !ok {
		labels = localizedLabels[LocaleRU]
	}
	if label, ok := labels[c]; ok {
		return label
	}
	return string(c)
}

// ParseLocale normalizes an Accept-Language style value.
func ParseLocale(raw string) Locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(raw, "en"):
		return LocaleEN
	case strings.HasPrefix(raw, "ru"):
		return LocaleRU
	default:
		return ""
	}
}

// CategoryFromLabel maps a raw model label onto the fixed category set.
// It understands canonical names, any localized label and clustering ids
// ("0".."3"). Anything else maps to Miscellaneous.
func CategoryFromLabel(raw string) Category {
	label := strings.TrimSpace(raw)
	if label == "" {
		return CategoryMiscellaneous
	}
	for _, c := range Categories {
		if strings.EqualFold(label, string(c)) {
			return c
		}
	}
	for _, labels := range localizedLabels {
		for c, display := range labels {
			if strings.EqualFold(label, display) {
				return c
			}
		}
	}
	if id, err := strconv.Atoi(label); err == nil {
		if c, ok := clusterCategories[id]; ok {
			return c
		}
	}
	return CategoryMiscellaneous
}

// ParseCategory is the strict variant used for filters: it reports whether
// the value names a category at all.
func ParseCategory(raw string) (Category, bool) {
	label := strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(label, string(c)) {
			return c, true
		}
	}
	for _, labels := range localizedLabels {
		for c, display := range labels {
			if strings.EqualFold(label, display) {
				return c, true
			}
		}
	}
	return "", false
}
