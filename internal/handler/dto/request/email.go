package request

import (
	"scheduled-mailer/internal/usecase/commands"
)

// ScheduledAt is validated by the scheduler so that missing and malformed
// values share one error path.
type ScheduleEmailRequest struct {
	Recipient   string `json:"recipient" binding:"required"`
	Subject     string `json:"subject" binding:"required"`
	Body        string `json:"body"`
	ScheduledAt string `json:"scheduledAt"`
}

func (r *ScheduleEmailRequest) ToInput() commands.ScheduleInput {
	return commands.ScheduleInput{
		Recipient:   r.Recipient,
		Subject:     r.Subject,
		Body:        r.Body,
		ScheduledAt: r.ScheduledAt,
	}
}
