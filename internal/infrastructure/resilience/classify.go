package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

// TransientClassifier builds an ErrorClassifier from a dependency specific
// transient test. Cancellation is never retried nor counted against the
// breaker; an open breaker is retried. Everything else is recorded as a
// failure and retried only when transient reports true.
func TransientClassifier(transient func(error) bool) ErrorClassifier {
	return func(err error) ErrorClassification {
		switch {
		case err == nil:
			return ErrorClassification{}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ErrorClassification{}
		case IsCircuitOpen(err):
			return ErrorClassification{Retryable: true, RecordFailure: true}
		case transient != nil && transient(err):
			return ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return ErrorClassification{RecordFailure: true}
		}
	}
}

// MarkTemporary tags retryable errors with domain.ErrTemporary so callers can
// tell a flaky dependency from a rejected request.
func MarkTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
