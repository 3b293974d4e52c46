package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/resilience"
)

func TestClassifierParsesCategoryAndConfidence(t *testing.T) {
	var capturedPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		capturedPrompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"Sure: {\"category\":\"Letters\",\"confidence\":0.82}"}`))
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen"))
	pred, err := classifier.Predict(context.Background(), domain.Features{Text: "Уважаемый коллега"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Label != "Letters" {
		t.Fatalf("expected Letters, got %q", pred.Label)
	}
	if pred.Confidence == nil || *pred.Confidence != 0.82 {
		t.Fatalf("unexpected confidence %v", pred.Confidence)
	}
	if !strings.Contains(capturedPrompt, "Уважаемый коллега") || !strings.Contains(capturedPrompt, "Ordinance") {
		t.Fatalf("unexpected prompt: %s", capturedPrompt)
	}
}

func TestClassifierIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	classifier := NewClassifier(New(server.URL, "gen"))
	_, err := classifier.Predict(context.Background(), domain.Features{Text: "text"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrInference) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected inference+temporary kinds, got %v", err)
	}
}

func TestClassifierRetriesThroughExecutor(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"response":"{\"category\":\"Order\"}"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		BreakerEnabled:      false,
	})
	classifier := NewClassifier(NewWithExecutor(server.URL, "gen", exec))
	pred, err := classifier.Predict(context.Background(), domain.Features{Text: "Приказываю"})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Label != "Order" || pred.Confidence != nil {
		t.Fatalf("unexpected prediction %+v", pred)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestClassifierRejectsEmptyText(t *testing.T) {
	_, err := NewClassifier(New("http://127.0.0.1:1", "gen")).Predict(context.Background(), domain.Features{Text: "  "})
	if !domain.IsKind(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}
