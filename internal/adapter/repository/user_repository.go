package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/billing-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/model"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewUserRepository creates a repository over the shared users table
func NewUserRepository(db *gorm.DB, logger *zap.Logger) repository.UserRepository {
	return &userRepository{db: db, logger: logger}
}

// UpdateSubscriptionStatus writes the status mirror
func (r *userRepository) UpdateSubscriptionStatus(ctx context.Context, userID uuid.UUID, status entity.SubscriptionStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_status": string(status),
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user subscription status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrUserNotFound
	}
	return nil
}

// IsOnboardingCompleted reads the onboarding flag
func (r *userRepository) IsOnboardingCompleted(ctx context.Context, userID uuid.UUID) (bool, error) {
	var user model.User

	err := r.db.WithContext(ctx).
		Select("id", "onboarding_completed").
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domainErrors.ErrUserNotFound
		}
		r.logger.Error("Failed to load user", zap.String("user_id", userID.String()), zap.Error(err))
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	return user.OnboardingCompleted, nil
}
