package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"MIN_TEXT_LENGTH", "DEFAULT_LOCALE", "NATS_SUBJECT", "API_RATE_LIMIT_RPS", "RESILIENCE_RETRY_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.MinTextLength != 10 {
		t.Fatalf("expected default min text length 10, got %d", cfg.MinTextLength)
	}
	if cfg.DefaultLocale != "ru" {
		t.Fatalf("expected default locale ru, got %q", cfg.DefaultLocale)
	}
	if cfg.NATSSubject != "archives.queued" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
	if cfg.APIRateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.Resilience.RetryMaxAttempts != 3 || !cfg.Resilience.BreakerEnabled {
		t.Fatalf("unexpected resilience defaults %+v", cfg.Resilience)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("MIN_TEXT_LENGTH", "25")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", "50")
	t.Setenv("MAX_UPLOAD_MB", "not-a-number")

	cfg := Load()
	if cfg.MinTextLength != 25 {
		t.Fatalf("expected min text length 25, got %d", cfg.MinTextLength)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.Resilience.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
	if cfg.Resilience.RetryInitialBackoff != 50*time.Millisecond {
		t.Fatalf("expected 50ms backoff, got %v", cfg.Resilience.RetryInitialBackoff)
	}
	if cfg.MaxUploadMB != 100 {
		t.Fatalf("expected fallback for invalid int, got %d", cfg.MaxUploadMB)
	}
}
