package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an append-only subscription transition log entry
type AuditEvent struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID string    `gorm:"size:100;index" json:"subscription_id"`
	EventType      string    `gorm:"size:100;not null" json:"event_type"`
	PreviousStatus string    `gorm:"size:20" json:"previous_status"`
	NewStatus      string    `gorm:"size:20;not null" json:"new_status"`
	Metadata       JSONB     `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt      time.Time `gorm:"default:now();index" json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "subscription_audit_events"
}
