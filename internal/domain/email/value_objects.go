package email

import (
	"net/mail"
	"strings"
)

const MaxSubjectLength = 998

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusSent      Status = "SENT"
	StatusFailed    Status = "FAILED"
)

func NewStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusScheduled, StatusSent, StatusFailed:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransitionTo allows forward moves out of SCHEDULED only.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusScheduled && next.IsTerminal()
}

type Recipient struct {
	address string
}

func NewRecipient(s string) (Recipient, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Recipient{}, ErrInvalidRecipient
	}
	addr, err := mail.ParseAddress(t)
	if err != nil {
		return Recipient{}, ErrInvalidRecipient
	}
	return Recipient{address: addr.Address}, nil
}

func (r Recipient) String() string { return r.address }

type Subject struct {
	text string
}

func NewSubject(s string) (Subject, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return Subject{}, ErrEmptySubject
	}
	if len(t) > MaxSubjectLength {
		return Subject{}, ErrSubjectTooLong
	}
	return Subject{text: t}, nil
}

func (s Subject) String() string { return s.text }
