package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription is keyed by the provider's subscription id.
type Subscription struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID         string          `gorm:"column:external_id;uniqueIndex;size:100;not null" json:"external_id"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CustomerID         string          `gorm:"column:customer_id;size:100;index" json:"customer_id"`
	Status             string          `gorm:"size:20;not null;index" json:"status"`
	ProviderStatus     string          `gorm:"size:50" json:"provider_status"`
	PlanID             string          `gorm:"size:100" json:"plan_id"`
	PlanName           string          `gorm:"size:255" json:"plan_name"`
	Amount             decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"amount"`
	Currency           string          `gorm:"size:3" json:"currency"`
	CurrentPeriodStart *time.Time      `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time      `gorm:"index" json:"current_period_end,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancelAtPeriodEnd  bool            `gorm:"not null;default:false" json:"cancel_at_period_end"`
	Metadata           JSONB           `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	LastEventAt        *time.Time      `json:"last_event_at,omitempty"`
	CreatedAt          time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
