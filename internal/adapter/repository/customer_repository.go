package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/billing-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/model"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type customerRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *gorm.DB, logger *zap.Logger) repository.CustomerRepository {
	return &customerRepository{db: db, logger: logger}
}

// Upsert stores the provider customer. A nil UserID never clears an existing link.
func (r *customerRepository) Upsert(ctx context.Context, customer *entity.Customer) error {
	m := &model.Customer{
		ExternalID: customer.ExternalID,
		UserID:     customer.UserID,
		Email:      customer.Email,
		Name:       customer.Name,
		Metadata:   model.JSONB(customer.Metadata),
	}

	assignments := clause.Assignments(map[string]interface{}{
		"email":      gorm.Expr("EXCLUDED.email"),
		"name":       gorm.Expr("EXCLUDED.name"),
		"user_id":    gorm.Expr("COALESCE(EXCLUDED.user_id, billing_customers.user_id)"),
		"updated_at": gorm.Expr("now()"),
	})

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: assignments,
		}).
		Create(m).Error
	if err != nil {
		r.logger.Error("Failed to upsert customer",
			zap.String("customer_id", customer.ExternalID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert customer: %w", err)
	}

	customer.ID = m.ID
	return nil
}

// GetByExternalID retrieves a customer by the provider's customer id
func (r *customerRepository) GetByExternalID(ctx context.Context, externalID string) (*entity.Customer, error) {
	return r.first(ctx, "external_id = ?", externalID)
}

// GetByUserID retrieves the most recently updated customer linked to the user
func (r *customerRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Customer, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *customerRepository) first(ctx context.Context, query string, arg interface{}) (*entity.Customer, error) {
	var m model.Customer

	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("updated_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrCustomerNotFound
		}
		r.logger.Error("Failed to get customer", zap.Any("key", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &entity.Customer{
		ID:         m.ID,
		ExternalID: m.ExternalID,
		UserID:     m.UserID,
		Email:      m.Email,
		Name:       m.Name,
		Metadata:   map[string]interface{}(m.Metadata),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}
