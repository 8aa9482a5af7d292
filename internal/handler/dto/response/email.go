package response

import (
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/usecase/readmodel"
)

type EmailResponse struct {
	ID          string     `json:"id"`
	Recipient   string     `json:"recipient"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type ScheduleEmailResponse struct {
	EmailResponse
	Warnings []string `json:"warnings,omitempty"`
}

type SendNowResponse struct {
	Message string         `json:"message"`
	Email   *EmailResponse `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type StatsResponse struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Scheduled int `json:"scheduled"`
	Failed    int `json:"failed"`
}

func FromEmail(e *email.Email) *EmailResponse {
	s := e.Snapshot()
	return &EmailResponse{
		ID:          s.ID.String(),
		Recipient:   s.Recipient,
		Subject:     s.Subject,
		Body:        s.Body,
		Status:      s.Status,
		ScheduledAt: s.ScheduledAt,
		SentAt:      s.SentAt,
		Error:       s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func FromEmailRM(rm *readmodel.EmailRM) *EmailResponse {
	return &EmailResponse{
		ID:          rm.ID.String(),
		Recipient:   rm.Recipient,
		Subject:     rm.Subject,
		Body:        rm.Body,
		Status:      rm.Status,
		ScheduledAt: rm.ScheduledAt,
		SentAt:      rm.SentAt,
		Error:       rm.LastError,
		CreatedAt:   rm.CreatedAt,
		UpdatedAt:   rm.UpdatedAt,
	}
}

func FromEmailList(rms []*readmodel.EmailRM) []*EmailResponse {
	res := make([]*EmailResponse, len(rms))
	for i, rm := range rms {
		res[i] = FromEmailRM(rm)
	}
	return res
}

func FromStats(s *readmodel.EmailStatsRM) StatsResponse {
	return StatsResponse{
		Total:     s.Total,
		Sent:      s.Sent,
		Scheduled: s.Scheduled,
		Failed:    s.Failed,
	}
}
