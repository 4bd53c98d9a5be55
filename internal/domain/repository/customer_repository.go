package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

type CustomerRepository interface {
	Upsert(ctx context.Context, customer *entity.Customer) error
	GetByExternalID(ctx context.Context, externalID string) (*entity.Customer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Customer, error)
}
