package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the slice of the shared users table this service reads and writes.
// The table itself is owned by the account service.
type User struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubscriptionStatus  string    `gorm:"size:20" json:"subscription_status"`
	OnboardingCompleted bool      `gorm:"not null;default:false" json:"onboarding_completed"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
