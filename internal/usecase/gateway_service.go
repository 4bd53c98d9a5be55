package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/cache"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/resilience"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

// checkoutMaxRetries caps retries for session creation; a duplicated
// checkout is worse than a failed one.
const checkoutMaxRetries = 2

// MutationResult is returned by user-initiated provider mutations.
type MutationResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func mutationFailed(err error) MutationResult {
	appErr := resilience.Classify(err)
	return MutationResult{Success: false, Error: appErr.UserMessage(), Code: appErr.Code()}
}

// GatewayPolicies are the retry policies for read and mutating calls.
type GatewayPolicies struct {
	Read     resilience.Policy
	Mutation resilience.Policy
}

// GatewayService wraps every provider call in the resilience executor.
// Reads degrade to fallbacks, mutations fail with classified errors.
type GatewayService struct {
	gateway  provider.Gateway
	exec     *resilience.Executor
	plans    cache.PlanCache
	policies GatewayPolicies
	logger   *zap.Logger
	newKey   func() string
}

func NewGatewayService(gateway provider.Gateway, exec *resilience.Executor, plans cache.PlanCache, policies GatewayPolicies, logger *zap.Logger) *GatewayService {
	return &GatewayService{
		gateway:  gateway,
		exec:     exec,
		plans:    plans,
		policies: policies,
		logger:   logger.Named("gateway"),
		newKey:   func() string { return uuid.NewString() },
	}
}

// EnsureCustomer finds the provider customer by email or creates one.
// Concurrent first calls for the same email may both create.
func (s *GatewayService) EnsureCustomer(ctx context.Context, userRef, email, name string) (*entity.Customer, error) {
	if email == "" {
		return nil, errors.NewAppError(errors.ErrInvalidArgument, "email is required to create a customer", nil)
	}

	found := resilience.ExecuteSafe(ctx, s.exec, "search_customers", s.policies.Read,
		func(ctx context.Context) ([]entity.Customer, error) {
			return s.gateway.SearchCustomersByEmail(ctx, email)
		}, nil)

	if len(found.Value) > 0 {
		customer := found.Value[0]
		if name != "" && customer.Name != name {
			s.updateCustomerName(ctx, &customer, name)
		}
		return &customer, nil
	}

	req := &provider.CreateCustomerRequest{
		Email:          email,
		Name:           name,
		IdempotencyKey: s.newKey(),
	}
	if userRef != "" {
		req.Metadata = map[string]string{entity.MetadataUserID: userRef}
	}

	created, err := resilience.Execute(ctx, s.exec, "create_customer", s.policies.Mutation,
		func(ctx context.Context) (*entity.Customer, error) {
			return s.gateway.CreateCustomer(ctx, req)
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Created provider customer",
		zap.String("customer_id", created.ExternalID),
		zap.String("user_ref", userRef))
	return created, nil
}

// updateCustomerName is best-effort: a stale display name is not worth
// failing a checkout over.
func (s *GatewayService) updateCustomerName(ctx context.Context, customer *entity.Customer, name string) {
	req := &provider.UpdateCustomerRequest{
		CustomerID:     customer.ExternalID,
		Name:           name,
		IdempotencyKey: s.newKey(),
	}
	_, err := resilience.Execute(ctx, s.exec, "update_customer", s.policies.Mutation,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gateway.UpdateCustomerName(ctx, req)
		})
	if err != nil {
		errors.LogWarnings(s.logger, err, "Customer name update failed",
			zap.String("customer_id", customer.ExternalID))
		return
	}
	customer.Name = name
}

// CreateCheckoutSession fails loudly; there is no sensible fallback checkout.
func (s *GatewayService) CreateCheckoutSession(ctx context.Context, customerID, productID, returnURL string, metadata map[string]string) (*entity.CheckoutSession, error) {
	if customerID == "" || productID == "" {
		return nil, errors.NewAppError(errors.ErrInvalidArgument, "customer and product are required", nil)
	}

	req := &provider.CheckoutRequest{
		CustomerID:     customerID,
		ProductID:      productID,
		Quantity:       1,
		ReturnURL:      returnURL,
		Metadata:       metadata,
		IdempotencyKey: s.newKey(),
	}
	return resilience.Execute(ctx, s.exec, "create_checkout_session", s.policies.Mutation.WithMaxRetries(checkoutMaxRetries),
		func(ctx context.Context) (*entity.CheckoutSession, error) {
			return s.gateway.CreateCheckoutSession(ctx, req)
		})
}

// ListProductsForCheckout serves the cached catalogue while fresh, refreshes
// it otherwise, and falls back to the stale copy when the refresh fails. It
// returns an empty list only when nothing was ever cached.
func (s *GatewayService) ListProductsForCheckout(ctx context.Context) []entity.Plan {
	entry, cached, err := s.plans.Get(ctx)
	if err != nil {
		s.logger.Warn("Plan cache read failed", zap.Error(err))
		cached = false
	}
	if cached && entry.Fresh(s.plans.Now()) {
		return entry.Plans
	}

	res := resilience.ExecuteSafe(ctx, s.exec, "list_products", s.policies.Read,
		func(ctx context.Context) ([]entity.Plan, error) {
			return s.gateway.ListProducts(ctx)
		}, nil)

	if res.OK() {
		plans := res.Value
		if plans == nil {
			plans = []entity.Plan{}
		}
		if err := s.plans.Set(ctx, plans); err != nil {
			s.logger.Warn("Plan cache write failed", zap.Error(err))
		}
		return plans
	}

	if cached {
		s.logger.Warn("Serving stale plan catalogue",
			zap.Time("expired_at", entry.ExpiresAt),
			zap.String("error_code", res.Err.Code()))
		return entry.Plans
	}
	return []entity.Plan{}
}

// RefreshPlans fetches the catalogue and overwrites the cache. Unlike
// ListProductsForCheckout it reports failures, so operators warming the cache
// know whether it worked.
func (s *GatewayService) RefreshPlans(ctx context.Context) ([]entity.Plan, error) {
	plans, err := resilience.Execute(ctx, s.exec, "list_products", s.policies.Read,
		func(ctx context.Context) ([]entity.Plan, error) {
			return s.gateway.ListProducts(ctx)
		})
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []entity.Plan{}
	}
	if err := s.plans.Set(ctx, plans); err != nil {
		return plans, errors.Wrap(err, "failed to write plan cache")
	}
	return plans, nil
}

// GetCustomerSubscriptions returns an empty list when the provider fails.
func (s *GatewayService) GetCustomerSubscriptions(ctx context.Context, customerID string) []entity.Subscription {
	res := resilience.ExecuteSafe(ctx, s.exec, "list_subscriptions", s.policies.Read,
		func(ctx context.Context) ([]entity.Subscription, error) {
			return s.gateway.ListSubscriptions(ctx, customerID)
		}, []entity.Subscription{})
	if res.Value == nil {
		return []entity.Subscription{}
	}
	return res.Value
}

// GetSubscription returns nil when the provider fails or has no such id.
func (s *GatewayService) GetSubscription(ctx context.Context, subscriptionID string) *entity.Subscription {
	res := resilience.ExecuteSafe(ctx, s.exec, "get_subscription", s.policies.Read,
		func(ctx context.Context) (*entity.Subscription, error) {
			return s.gateway.GetSubscription(ctx, subscriptionID)
		}, nil)
	return res.Value
}

// CancelSubscription stops renewal at the end of the current period.
func (s *GatewayService) CancelSubscription(ctx context.Context, subscriptionID string) MutationResult {
	req := &provider.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		AtPeriodEnd:    true,
		IdempotencyKey: s.newKey(),
	}
	_, err := resilience.Execute(ctx, s.exec, "cancel_subscription", s.policies.Mutation,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gateway.CancelSubscription(ctx, req)
		})
	if err != nil {
		errors.LogError(s.logger, err, "Subscription cancel failed", zap.String("subscription_id", subscriptionID))
		return mutationFailed(err)
	}
	return MutationResult{Success: true}
}

func (s *GatewayService) ChangePlan(ctx context.Context, subscriptionID, productID string) MutationResult {
	req := &provider.ChangePlanRequest{
		SubscriptionID: subscriptionID,
		ProductID:      productID,
		Quantity:       1,
		IdempotencyKey: s.newKey(),
	}
	_, err := resilience.Execute(ctx, s.exec, "change_plan", s.policies.Mutation,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.gateway.ChangePlan(ctx, req)
		})
	if err != nil {
		errors.LogError(s.logger, err, "Plan change failed",
			zap.String("subscription_id", subscriptionID),
			zap.String("product_id", productID))
		return mutationFailed(err)
	}
	return MutationResult{Success: true}
}
