package entity

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is an append-only record of a subscription status transition.
type AuditEvent struct {
	ID             int64
	UserID         uuid.UUID
	SubscriptionID string
	EventType      string
	PreviousStatus SubscriptionStatus
	NewStatus      SubscriptionStatus
	Metadata       map[string]interface{}
	CreatedAt      time.Time
}
