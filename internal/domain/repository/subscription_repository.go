package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

type SubscriptionRepository interface {
	// Upsert inserts or fully overwrites the row with the same ExternalID.
	Upsert(ctx context.Context, subscription *entity.Subscription) error
	// GetByExternalID returns domain errors.ErrSubscriptionNotFound when absent.
	GetByExternalID(ctx context.Context, externalID string) (*entity.Subscription, error)
	Update(ctx context.Context, subscription *entity.Subscription) error
	// UpdateFields writes only the patch's set columns of the row with externalID.
	UpdateFields(ctx context.Context, externalID string, patch entity.SubscriptionPatch) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)
}
