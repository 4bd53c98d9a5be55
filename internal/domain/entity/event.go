package entity

import (
	"encoding/json"
	"time"
)

// Provider event types routed by the projector.
const (
	EventSubscriptionCreated     = "subscription.created"
	EventSubscriptionActive      = "subscription.active"
	EventSubscriptionRenewed     = "subscription.renewed"
	EventSubscriptionPlanChanged = "subscription.plan_changed"
	EventSubscriptionOnHold      = "subscription.on_hold"
	EventSubscriptionCancelled   = "subscription.cancelled"
	EventSubscriptionFailed      = "subscription.failed"
	EventSubscriptionExpired     = "subscription.expired"
	EventPaymentSucceeded        = "payment.succeeded"
	EventPaymentFailed           = "payment.failed"
)

// WebhookEvent is a verified, decoded provider notification.
type WebhookEvent struct {
	ID        string          `json:"-"`
	Type      string          `json:"type"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// EntitlementChange is published after a subscription transition is applied.
type EntitlementChange struct {
	UserID         string             `json:"user_id"`
	SubscriptionID string             `json:"subscription_id"`
	EventType      string             `json:"event_type"`
	PreviousStatus SubscriptionStatus `json:"previous_status,omitempty"`
	Status         SubscriptionStatus `json:"status"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// VoiceEvent is a verified callback from the audio provider, forwarded as-is.
type VoiceEvent struct {
	Type       string          `json:"type"`
	EventTime  int64           `json:"event_timestamp,omitempty"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"received_at"`
}
