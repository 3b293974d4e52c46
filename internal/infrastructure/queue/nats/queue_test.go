package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/resilience"
)

func TestClassifyError(t *testing.T) {
	if c := classifyError(fmt.Errorf("nats publish: %w", nats.ErrNoServers)); !c.Retryable || !c.RecordFailure {
		t.Fatalf("no servers must be retryable, got %+v", c)
	}
	if c := classifyError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation must not be retried or recorded, got %+v", c)
	}
	if c := classifyError(nats.ErrBadSubject); c.Retryable {
		t.Fatalf("bad subject must not be retried, got %+v", c)
	}
}

func TestConnectionLossIsTemporary(t *testing.T) {
	err := resilience.MarkTemporary("nats publish", fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed), classifyError)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	permanent := errors.New("payload rejected")
	if got := resilience.MarkTemporary("nats publish", permanent, classifyError); got != permanent {
		t.Fatalf("permanent errors must pass through, got %v", got)
	}
}

func TestPublishRejectsEmptyJobID(t *testing.T) {
	q := &Queue{subject: "archives.queued"}
	if err := q.PublishArchiveQueued(context.Background(), "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
