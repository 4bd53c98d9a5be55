package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus is the lifecycle state of a subscription as projected
// from provider events.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusPending   SubscriptionStatus = "pending"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusOnHold    SubscriptionStatus = "on_hold"
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
	// SubscriptionStatusInactive is never stored; it is what a user without
	// any qualifying subscription resolves to.
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
)

// GrantsAccess reports whether the status can entitle a user, subject to the
// period end still being in the future.
func (s SubscriptionStatus) GrantsAccess() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusPastDue
}

// Subscription is the locally persisted projection of a provider subscription.
// ExternalID is the idempotency key for every webhook write.
type Subscription struct {
	ID                 int64
	ExternalID         string
	UserID             uuid.UUID
	CustomerID         string
	Status             SubscriptionStatus
	ProviderStatus     string
	PlanID             string
	PlanName           string
	Amount             decimal.Decimal
	Currency           string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelledAt        *time.Time
	CancelAtPeriodEnd  bool
	Metadata           map[string]interface{}
	LastEventAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsCancelling reports whether the user asked to stop renewal.
func (s *Subscription) IsCancelling() bool {
	return s.CancelledAt != nil || s.CancelAtPeriodEnd
}

// SubscriptionPatch is a partial write owned by a user action. Nil fields keep
// their stored value, so webhook-owned columns (status, period, last event)
// are never rewritten from a stale read.
type SubscriptionPatch struct {
	CancelAtPeriodEnd *bool
	PlanID            *string
	PlanName          *string
	Amount            *decimal.Decimal
	Currency          *string
	UpdatedAt         time.Time
}
