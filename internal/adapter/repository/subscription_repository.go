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

// upsertColumns are overwritten when a row with the same external_id exists.
// created_at is deliberately absent so the first insert time survives.
var upsertColumns = []string{
	"user_id", "customer_id", "status", "provider_status", "plan_id", "plan_name",
	"amount", "currency", "current_period_start", "current_period_end",
	"cancelled_at", "cancel_at_period_end", "metadata", "last_event_at", "updated_at",
}

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{db: db, logger: logger}
}

// Upsert inserts the subscription or overwrites the row with the same external id
func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *entity.Subscription) error {
	sub := subscriptionToModel(subscription)
	// the conflict target is external_id; RETURNING fills in the stored id
	sub.ID = 0

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(sub).Error
	if err != nil {
		r.logger.Error("Failed to upsert subscription",
			zap.String("subscription_id", subscription.ExternalID),
			zap.Error(err))
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	subscription.ID = sub.ID
	return nil
}

// GetByExternalID retrieves a subscription by the provider's subscription id
func (r *subscriptionRepository) GetByExternalID(ctx context.Context, externalID string) (*entity.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.ErrSubscriptionNotFound
		}
		r.logger.Error("Failed to get subscription",
			zap.String("subscription_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return subscriptionToEntity(&sub), nil
}

// Update overwrites every mutable column. UpdateColumns skips gorm's
// updated_at tracking so event timestamps are stored as given.
func (r *subscriptionRepository) Update(ctx context.Context, subscription *entity.Subscription) error {
	sub := subscriptionToModel(subscription)
	updates := map[string]interface{}{
		"user_id":              sub.UserID,
		"customer_id":          sub.CustomerID,
		"status":               sub.Status,
		"provider_status":      sub.ProviderStatus,
		"plan_id":              sub.PlanID,
		"plan_name":            sub.PlanName,
		"amount":               sub.Amount,
		"currency":             sub.Currency,
		"current_period_start": sub.CurrentPeriodStart,
		"current_period_end":   sub.CurrentPeriodEnd,
		"cancelled_at":         sub.CancelledAt,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"metadata":             sub.Metadata,
		"last_event_at":        sub.LastEventAt,
		"updated_at":           sub.UpdatedAt,
	}

	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("external_id = ?", subscription.ExternalID).
		UpdateColumns(updates)
	if result.Error != nil {
		r.logger.Error("Failed to update subscription",
			zap.String("subscription_id", subscription.ExternalID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSubscriptionNotFound
	}
	return nil
}

// UpdateFields writes the patch's columns only. Concurrent webhook writes to
// other columns are left intact.
func (r *subscriptionRepository) UpdateFields(ctx context.Context, externalID string, patch entity.SubscriptionPatch) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("external_id = ?", externalID).
		UpdateColumns(patchColumns(patch))
	if result.Error != nil {
		r.logger.Error("Failed to patch subscription",
			zap.String("subscription_id", externalID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to patch subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrSubscriptionNotFound
	}
	return nil
}

// patchColumns maps the patch's set fields onto column names. updated_at is
// always written.
func patchColumns(p entity.SubscriptionPatch) map[string]interface{} {
	cols := map[string]interface{}{"updated_at": p.UpdatedAt}
	if p.CancelAtPeriodEnd != nil {
		cols["cancel_at_period_end"] = *p.CancelAtPeriodEnd
	}
	if p.PlanID != nil {
		cols["plan_id"] = *p.PlanID
	}
	if p.PlanName != nil {
		cols["plan_name"] = *p.PlanName
	}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.Currency != nil {
		cols["currency"] = *p.Currency
	}
	return cols
}

// ListByUser returns every subscription of the user, newest first
func (r *subscriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	var subs []model.Subscription

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&subs).Error
	if err != nil {
		r.logger.Error("Failed to list subscriptions",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	out := make([]*entity.Subscription, 0, len(subs))
	for i := range subs {
		out = append(out, subscriptionToEntity(&subs[i]))
	}
	return out, nil
}

func subscriptionToModel(s *entity.Subscription) *model.Subscription {
	return &model.Subscription{
		ID:                 s.ID,
		ExternalID:         s.ExternalID,
		UserID:             s.UserID,
		CustomerID:         s.CustomerID,
		Status:             string(s.Status),
		ProviderStatus:     s.ProviderStatus,
		PlanID:             s.PlanID,
		PlanName:           s.PlanName,
		Amount:             s.Amount,
		Currency:           s.Currency,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CancelledAt:        s.CancelledAt,
		CancelAtPeriodEnd:  s.CancelAtPeriodEnd,
		Metadata:           model.JSONB(s.Metadata),
		LastEventAt:        s.LastEventAt,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func subscriptionToEntity(m *model.Subscription) *entity.Subscription {
	return &entity.Subscription{
		ID:                 m.ID,
		ExternalID:         m.ExternalID,
		UserID:             m.UserID,
		CustomerID:         m.CustomerID,
		Status:             entity.SubscriptionStatus(m.Status),
		ProviderStatus:     m.ProviderStatus,
		PlanID:             m.PlanID,
		PlanName:           m.PlanName,
		Amount:             m.Amount,
		Currency:           m.Currency,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CancelledAt:        m.CancelledAt,
		CancelAtPeriodEnd:  m.CancelAtPeriodEnd,
		Metadata:           map[string]interface{}(m.Metadata),
		LastEventAt:        m.LastEventAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
