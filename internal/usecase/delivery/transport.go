package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Message is a fully formed outbound email.
type Message struct {
	ID      uuid.UUID
	From    string
	To      string
	Subject string
	Body    string
}

// Transport hands a message to the outside world. It returns the provider's
// message id on success.
type Transport interface {
	Send(ctx context.Context, msg Message) (string, error)
	Name() string
}

// TransportError is a retryable delivery failure.
type TransportError struct {
	Transport string
	Cause     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Transport, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }
