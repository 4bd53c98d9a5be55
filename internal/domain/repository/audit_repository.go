package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, event *entity.AuditEvent) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.AuditEvent, error)
}
