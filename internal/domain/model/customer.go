package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer maps a provider customer to a local user
type Customer struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID string     `gorm:"column:external_id;uniqueIndex;size:100;not null" json:"external_id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Email      string     `gorm:"size:255;index" json:"email"`
	Name       string     `gorm:"size:255" json:"name"`
	Metadata   JSONB      `gorm:"type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt  time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"default:now()" json:"updated_at"`
}

func (Customer) TableName() string {
	return "billing_customers"
}
