package email

import "scheduled-mailer/internal/pkg/errs"

var (
	ErrInvalidRecipient = errs.New("recipient must be a valid email address")
	ErrEmptySubject     = errs.New("subject cannot be empty")
	ErrSubjectTooLong   = errs.New("subject exceeds maximum length")
	ErrInvalidStatus    = errs.New("invalid email status")

	ErrInvalidSchedule = errs.New("scheduled time is missing or malformed")
	ErrPastSchedule    = errs.New("scheduled time must be in the future")

	ErrTerminalStatus = errs.New("email already reached a terminal status")
)
