package converter

import (
	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/usecase/readmodel"
)

func EmailToReadModel(s email.Snapshot) *readmodel.EmailRM {
	return &readmodel.EmailRM{
		ID:          s.ID,
		OwnerID:     s.OwnerID,
		Recipient:   s.Recipient,
		Subject:     s.Subject,
		Body:        s.Body,
		Status:      s.Status,
		ScheduledAt: s.ScheduledAt,
		SentAt:      s.SentAt,
		MessageID:   s.MessageID,
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// StatsFromCounts folds per-status counts into the stats read model.
// Unknown statuses are ignored.
func StatsFromCounts(counts map[string]int) *readmodel.EmailStatsRM {
	stats := &readmodel.EmailStatsRM{
		Sent:      counts[email.StatusSent.String()],
		Scheduled: counts[email.StatusScheduled.String()],
		Failed:    counts[email.StatusFailed.String()],
	}
	stats.Total = stats.Sent + stats.Scheduled + stats.Failed
	return stats
}
