package readmodel

import (
	"time"

	"github.com/google/uuid"
)

type EmailRM struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Recipient   string     `json:"recipient"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	MessageID   string     `json:"message_id,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type EmailStatsRM struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Scheduled int `json:"scheduled"`
	Failed    int `json:"failed"`
}
