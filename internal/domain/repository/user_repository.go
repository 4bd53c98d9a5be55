package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// UserRepository covers the columns of the shared users table this service touches.
type UserRepository interface {
	// UpdateSubscriptionStatus writes the denormalized status mirror.
	UpdateSubscriptionStatus(ctx context.Context, userID uuid.UUID, status entity.SubscriptionStatus) error
	IsOnboardingCompleted(ctx context.Context, userID uuid.UUID) (bool, error)
}
