package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/billing-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/repository"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

// SubscriptionService serves the user-facing subscription surface: status
// reads, billing history and the cancel and change-plan actions.
type SubscriptionService struct {
	gateway       *GatewayService
	subscriptions repository.SubscriptionRepository
	customers     repository.CustomerRepository
	users         repository.UserRepository
	audit         repository.AuditRepository
	now           func() time.Time
	logger        *zap.Logger
}

func NewSubscriptionService(
	gateway *GatewayService,
	subscriptions repository.SubscriptionRepository,
	customers repository.CustomerRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		gateway:       gateway,
		subscriptions: subscriptions,
		customers:     customers,
		users:         users,
		audit:         audit,
		now:           time.Now,
		logger:        logger.Named("subscriptions"),
	}
}

// GetBillingStatus never fails: store errors resolve to an inactive view so
// the client always gets an answer.
func (s *SubscriptionService) GetBillingStatus(ctx context.Context, userID uuid.UUID) entity.BillingStatus {
	status := entity.BillingStatus{Access: entity.InactiveView()}

	subs, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		errors.LogError(s.logger, err, "Failed to load subscriptions", zap.String("user_id", userID.String()))
	} else if len(subs) > 0 {
		plans := s.gateway.ListProductsForCheckout(ctx)
		status.Access = ResolveAccess(subs, plans, s.now())
	}

	onboarded, err := s.users.IsOnboardingCompleted(ctx, userID)
	if err != nil && !errors.Is(err, domainErrors.ErrUserNotFound) {
		errors.LogError(s.logger, err, "Failed to load onboarding state", zap.String("user_id", userID.String()))
	}
	status.OnboardingCompleted = onboarded
	return status
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// ListForUser returns the stored subscriptions. A user with none stored yet,
// typically right after checkout and before the first webhook, gets the
// provider's view of their customer instead. That view is not persisted.
func (s *SubscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	subs, err := s.subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list subscriptions")
	}
	if len(subs) > 0 {
		return subs, nil
	}

	customer, err := s.customers.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domainErrors.ErrCustomerNotFound) {
			errors.LogError(s.logger, err, "Failed to load customer link", zap.String("user_id", userID.String()))
		}
		return subs, nil
	}

	remote := s.gateway.GetCustomerSubscriptions(ctx, customer.ExternalID)
	out := make([]*entity.Subscription, 0, len(remote))
	for i := range remote {
		remote[i].UserID = userID
		out = append(out, &remote[i])
	}
	return out, nil
}

// History returns the user's status transitions, newest first. limit outside
// (0, maxHistoryLimit] falls back to the default page.
func (s *SubscriptionService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	events, err := s.audit.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load billing history")
	}
	return events, nil
}

// Cancel stops renewal at period end. Access continues until the provider
// sends the cancellation or expiry event.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID, subscriptionID string) MutationResult {
	sub, failed := s.owned(ctx, userID, subscriptionID)
	if failed != nil {
		return *failed
	}

	result := s.gateway.CancelSubscription(ctx, subscriptionID)
	if !result.Success {
		return result
	}

	cancelling := true
	patch := entity.SubscriptionPatch{CancelAtPeriodEnd: &cancelling, UpdatedAt: s.now().UTC()}
	// The provider already accepted the cancel; its webhook will catch the row up.
	s.recordLocally(ctx, sub.ExternalID, patch, "Failed to record cancellation locally")
	return result
}

func (s *SubscriptionService) ChangePlan(ctx context.Context, userID uuid.UUID, subscriptionID, planID string) MutationResult {
	if planID == "" {
		return mutationFailed(errors.NewAppError(errors.ErrInvalidArgument, "plan id is required", nil))
	}
	sub, failed := s.owned(ctx, userID, subscriptionID)
	if failed != nil {
		return *failed
	}
	if sub.PlanID == planID {
		return MutationResult{Success: true}
	}

	result := s.gateway.ChangePlan(ctx, subscriptionID, planID)
	if !result.Success {
		return result
	}

	patch := entity.SubscriptionPatch{PlanID: &planID, UpdatedAt: s.now().UTC()}
	if plan := entity.FindPlan(s.gateway.ListProductsForCheckout(ctx), planID); plan != nil {
		patch.PlanName = &plan.Name
		patch.Amount = &plan.DisplayPrice
		patch.Currency = &plan.Currency
	}
	s.recordLocally(ctx, sub.ExternalID, patch, "Failed to record plan change locally")
	return result
}

// recordLocally applies the action's own columns. A row that only exists at
// the provider so far is left to its creation webhook.
func (s *SubscriptionService) recordLocally(ctx context.Context, subscriptionID string, patch entity.SubscriptionPatch, msg string) {
	err := s.subscriptions.UpdateFields(ctx, subscriptionID, patch)
	switch {
	case err == nil:
	case errors.Is(err, domainErrors.ErrSubscriptionNotFound):
		s.logger.Debug("Subscription not projected yet; skipping local write",
			zap.String("subscription_id", subscriptionID))
	default:
		errors.LogWarnings(s.logger, err, msg, zap.String("subscription_id", subscriptionID))
	}
}

// owned loads the subscription and checks the caller owns it. Someone else's
// subscription reads as not found. A subscription the store has not seen yet
// is looked up at the provider and owned when it belongs to the caller's
// customer.
func (s *SubscriptionService) owned(ctx context.Context, userID uuid.UUID, subscriptionID string) (*entity.Subscription, *MutationResult) {
	sub, err := s.subscriptions.GetByExternalID(ctx, subscriptionID)
	if errors.Is(err, domainErrors.ErrSubscriptionNotFound) {
		sub, err = s.ownedAtProvider(ctx, userID, subscriptionID)
	}
	if err == nil && sub.UserID != userID {
		s.logger.Warn("Subscription access denied",
			zap.String("user_id", userID.String()),
			zap.String("subscription_id", subscriptionID))
		err = domainErrors.ErrSubscriptionNotOwned
	}
	if err != nil {
		var appErr error = errors.NewAppError(errors.ErrNotFound, "subscription not found", err)
		if !errors.Is(err, domainErrors.ErrSubscriptionNotFound) && !errors.Is(err, domainErrors.ErrSubscriptionNotOwned) {
			appErr = errors.Wrap(err, "failed to load subscription")
		}
		failed := mutationFailed(appErr)
		return nil, &failed
	}
	return sub, nil
}

func (s *SubscriptionService) ownedAtProvider(ctx context.Context, userID uuid.UUID, subscriptionID string) (*entity.Subscription, error) {
	customer, err := s.customers.GetByUserID(ctx, userID)
	if errors.Is(err, domainErrors.ErrCustomerNotFound) {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}

	sub := s.gateway.GetSubscription(ctx, subscriptionID)
	if sub == nil {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	if sub.CustomerID != customer.ExternalID {
		return nil, domainErrors.ErrSubscriptionNotOwned
	}
	sub.UserID = userID
	return sub, nil
}
