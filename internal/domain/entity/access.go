package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccessView is the single normalized entitlement answer for a user.
type AccessView struct {
	Status         SubscriptionStatus `json:"status"`
	HasAccess      bool               `json:"has_access"`
	Processing     bool               `json:"processing"`
	SubscriptionID string             `json:"subscription_id,omitempty"`
	PlanID         string             `json:"plan_id,omitempty"`
	PlanName       string             `json:"plan_name,omitempty"`
	PlanPrice      *decimal.Decimal   `json:"plan_price,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	PeriodEnd      *time.Time         `json:"current_period_end,omitempty"`
	Cancelling     bool               `json:"cancel_at_period_end"`
	ProviderStatus string             `json:"provider_status,omitempty"`
}

// InactiveView is returned when a user has nothing that qualifies.
func InactiveView() AccessView {
	return AccessView{Status: SubscriptionStatusInactive}
}

// BillingStatus is the read-surface response: entitlement plus onboarding state.
type BillingStatus struct {
	Access              AccessView `json:"subscription"`
	OnboardingCompleted bool       `json:"onboarding_completed"`
}
