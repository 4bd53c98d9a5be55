package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/model"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type auditRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB, logger *zap.Logger) repository.AuditRepository {
	return &auditRepository{db: db, logger: logger}
}

// Append inserts an audit row. Rows are never updated.
func (r *auditRepository) Append(ctx context.Context, event *entity.AuditEvent) error {
	m := &model.AuditEvent{
		UserID:         event.UserID,
		SubscriptionID: event.SubscriptionID,
		EventType:      event.EventType,
		PreviousStatus: string(event.PreviousStatus),
		NewStatus:      string(event.NewStatus),
		Metadata:       model.JSONB(event.Metadata),
		CreatedAt:      event.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	event.ID = m.ID
	return nil
}

// ListByUser returns the user's audit trail, newest first
func (r *auditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	var rows []model.AuditEvent

	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		r.logger.Error("Failed to list audit events",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	out := make([]*entity.AuditEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.AuditEvent{
			ID:             row.ID,
			UserID:         row.UserID,
			SubscriptionID: row.SubscriptionID,
			EventType:      row.EventType,
			PreviousStatus: entity.SubscriptionStatus(row.PreviousStatus),
			NewStatus:      entity.SubscriptionStatus(row.NewStatus),
			Metadata:       map[string]interface{}(row.Metadata),
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}
