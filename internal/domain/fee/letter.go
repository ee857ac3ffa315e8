package fee

import (
	"time"

	"github.com/google/uuid"
)

// LetterRecord is one generated collection or reminder letter tied to a fee.
// Rendering and delivery happen outside this service; the record tracks the
// send/open lifecycle for alerting.
type LetterRecord struct {
	ID       uuid.UUID `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	FeeID    uuid.UUID `json:"fee_id"`

	LetterType     string     `json:"letter_type"`
	SentAt         time.Time  `json:"sent_at"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	OpenCount      int        `json:"open_count"`
	ReminderNumber int        `json:"reminder_number"`
}

// RecordOpen tracks a letter-opened event from the delivery provider.
func (l *LetterRecord) RecordOpen(at time.Time) {
	if l.OpenedAt == nil {
		l.OpenedAt = &at
	}
	l.OpenCount++
}
