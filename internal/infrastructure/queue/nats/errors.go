package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/doc-classifier/internal/infrastructure/resilience"
)

var classifyError = resilience.TransientClassifier(isTransient)

// isTransient covers connection loss; the client reconnects on its own.
func isTransient(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting)
}
