package entity

import (
	"time"

	"github.com/google/uuid"
)

// Customer links a local user to the provider's customer record.
type Customer struct {
	ID         int64
	ExternalID string
	UserID     *uuid.UUID
	Email      string
	Name       string
	Metadata   map[string]interface{}
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
