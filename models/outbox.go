package models

import "time"

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "PENDING"
	OutboxSent    OutboxStatus = "SENT"
	OutboxFailed  OutboxStatus = "FAILED"
)

// OutboxMessage is a queued email written in the same transaction as the
// change that triggered it and delivered later by the outbox worker.
type OutboxMessage struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	Kind          string       `gorm:"type:varchar(40);not null" json:"kind"`
	Recipient     string       `gorm:"not null" json:"recipient"`
	Subject       string       `gorm:"not null" json:"subject"`
	Body          string       `gorm:"type:text;not null" json:"-"`
	Status        OutboxStatus `gorm:"type:varchar(10);not null;default:'PENDING';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int          `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts   int          `gorm:"not null;default:5" json:"maxAttempts"`
	NextAttemptAt time.Time    `gorm:"not null;index:idx_outbox_due,priority:2" json:"nextAttemptAt"`
	LastError     string       `gorm:"type:text" json:"lastError,omitempty"`
	SentAt        *time.Time   `json:"sentAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}
