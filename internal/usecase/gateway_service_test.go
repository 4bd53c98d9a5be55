package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/cache"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

func newGatewayService(gw *MockGateway, clock *fakeClock) *GatewayService {
	plans := cache.NewMemoryPlanCache(5*time.Minute, clock.Now)
	return NewGatewayService(gw, testExecutor(), plans, testPolicies(), zap.NewNop())
}

func upstreamDown() error {
	return &provider.ProviderError{HTTPStatus: 503, Message: "unavailable"}
}

func TestEnsureCustomer_ReusesExistingCustomer(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})
	ctx := context.Background()

	gw.On("SearchCustomersByEmail", mock.Anything, "ann@example.com").
		Return([]entity.Customer{{ExternalID: "cus_1", Email: "ann@example.com", Name: "Ann"}}, nil)

	first, err := svc.EnsureCustomer(ctx, "user-1", "ann@example.com", "Ann")
	require.NoError(t, err)
	second, err := svc.EnsureCustomer(ctx, "user-1", "ann@example.com", "Ann")
	require.NoError(t, err)

	assert.Equal(t, "cus_1", first.ExternalID)
	assert.Equal(t, first.ExternalID, second.ExternalID)
	gw.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "UpdateCustomerName", mock.Anything, mock.Anything)
}

func TestEnsureCustomer_SearchFailureFallsThroughToCreate(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})

	var keys []string
	gw.On("SearchCustomersByEmail", mock.Anything, "bob@example.com").Return(nil, upstreamDown())
	gw.On("CreateCustomer", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(*provider.CreateCustomerRequest).IdempotencyKey)
		}).
		Return(nil, upstreamDown()).Once()
	gw.On("CreateCustomer", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(*provider.CreateCustomerRequest).IdempotencyKey)
		}).
		Return(&entity.Customer{ExternalID: "cus_new", Email: "bob@example.com"}, nil).Once()

	customer, err := svc.EnsureCustomer(context.Background(), "user-2", "bob@example.com", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", customer.ExternalID)

	// search is retried by the read policy before giving up
	gw.AssertNumberOfCalls(t, "SearchCustomersByEmail", 3)
	require.Len(t, keys, 2)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "retries must reuse the idempotency key")
}

func TestEnsureCustomer_NameUpdateFailureIsNotFatal(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})

	gw.On("SearchCustomersByEmail", mock.Anything, "cy@example.com").
		Return([]entity.Customer{{ExternalID: "cus_3", Name: "Old Name"}}, nil)
	gw.On("UpdateCustomerName", mock.Anything, mock.Anything).
		Return(&provider.ProviderError{HTTPStatus: 422, Message: "bad name"})

	customer, err := svc.EnsureCustomer(context.Background(), "user-3", "cy@example.com", "New Name")
	require.NoError(t, err)
	assert.Equal(t, "cus_3", customer.ExternalID)
	assert.Equal(t, "Old Name", customer.Name)
	gw.AssertNumberOfCalls(t, "UpdateCustomerName", 1)
}

func TestEnsureCustomer_RequiresEmail(t *testing.T) {
	svc := newGatewayService(new(MockGateway), &fakeClock{t: time.Now()})

	_, err := svc.EnsureCustomer(context.Background(), "user-4", "", "")
	assert.Equal(t, errors.ErrInvalidArgument, errors.CodeOf(err))
}

func TestCreateCheckoutSession_RetryBudgetIsCapped(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})

	gw.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, upstreamDown())

	_, err := svc.CreateCheckoutSession(context.Background(), "cus_1", "pdt_pro", "https://app/return", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUpstream, errors.CodeOf(err))
	gw.AssertNumberOfCalls(t, "CreateCheckoutSession", 1+checkoutMaxRetries)
}

func TestCreateCheckoutSession_PassesMetadata(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})

	gw.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req *provider.CheckoutRequest) bool {
		return req.CustomerID == "cus_1" && req.ProductID == "pdt_pro" &&
			req.Metadata[entity.MetadataUserID] == "user-1" && req.IdempotencyKey != ""
	})).Return(&entity.CheckoutSession{SessionID: "cks_1", URL: "https://pay/cks_1"}, nil)

	session, err := svc.CreateCheckoutSession(context.Background(), "cus_1", "pdt_pro", "",
		map[string]string{entity.MetadataUserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/cks_1", session.URL)
}

func TestListProductsForCheckout(t *testing.T) {
	plans := []entity.Plan{{ID: "pdt_pro", Name: "Pro", Price: 1900, Currency: "USD"}}

	t.Run("fresh cache skips the provider", func(t *testing.T) {
		gw := new(MockGateway)
		clock := &fakeClock{t: time.Now()}
		svc := newGatewayService(gw, clock)
		gw.On("ListProducts", mock.Anything).Return(plans, nil).Once()

		assert.Equal(t, plans, svc.ListProductsForCheckout(context.Background()))
		clock.Advance(time.Minute)
		assert.Equal(t, plans, svc.ListProductsForCheckout(context.Background()))
		gw.AssertNumberOfCalls(t, "ListProducts", 1)
	})

	t.Run("stale cache served when refresh fails", func(t *testing.T) {
		gw := new(MockGateway)
		clock := &fakeClock{t: time.Now()}
		svc := newGatewayService(gw, clock)
		gw.On("ListProducts", mock.Anything).Return(plans, nil).Once()
		gw.On("ListProducts", mock.Anything).Return(nil, upstreamDown())

		svc.ListProductsForCheckout(context.Background())
		clock.Advance(10 * time.Minute)

		assert.Equal(t, plans, svc.ListProductsForCheckout(context.Background()))
		gw.AssertNumberOfCalls(t, "ListProducts", 1+3)
	})

	t.Run("empty when nothing was ever cached", func(t *testing.T) {
		gw := new(MockGateway)
		svc := newGatewayService(gw, &fakeClock{t: time.Now()})
		gw.On("ListProducts", mock.Anything).Return(nil, upstreamDown())

		got := svc.ListProductsForCheckout(context.Background())
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("expired cache refreshed on success", func(t *testing.T) {
		gw := new(MockGateway)
		clock := &fakeClock{t: time.Now()}
		svc := newGatewayService(gw, clock)
		updated := []entity.Plan{{ID: "pdt_team", Name: "Team", Price: 4900, Currency: "USD"}}
		gw.On("ListProducts", mock.Anything).Return(plans, nil).Once()
		gw.On("ListProducts", mock.Anything).Return(updated, nil).Once()

		svc.ListProductsForCheckout(context.Background())
		clock.Advance(6 * time.Minute)
		assert.Equal(t, updated, svc.ListProductsForCheckout(context.Background()))
	})
}

func TestRefreshPlans(t *testing.T) {
	plans := []entity.Plan{{ID: "pdt_pro", Name: "Pro", Price: 1900, Currency: "USD"}}

	t.Run("overwrites a fresh cache", func(t *testing.T) {
		gw := new(MockGateway)
		svc := newGatewayService(gw, &fakeClock{t: time.Now()})
		updated := []entity.Plan{{ID: "pdt_team", Name: "Team", Price: 4900, Currency: "USD"}}
		gw.On("ListProducts", mock.Anything).Return(plans, nil).Once()
		gw.On("ListProducts", mock.Anything).Return(updated, nil).Once()

		svc.ListProductsForCheckout(context.Background())
		got, err := svc.RefreshPlans(context.Background())
		require.NoError(t, err)
		assert.Equal(t, updated, got)
		assert.Equal(t, updated, svc.ListProductsForCheckout(context.Background()))
	})

	t.Run("reports provider failure", func(t *testing.T) {
		gw := new(MockGateway)
		svc := newGatewayService(gw, &fakeClock{t: time.Now()})
		gw.On("ListProducts", mock.Anything).Return(nil, upstreamDown())

		got, err := svc.RefreshPlans(context.Background())
		assert.Nil(t, got)
		assert.Equal(t, errors.ErrUpstream, errors.CodeOf(err))
	})
}

func TestGetCustomerSubscriptions_FallsBackToEmpty(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})
	gw.On("ListSubscriptions", mock.Anything, "cus_1").Return(nil, upstreamDown())
	gw.On("GetSubscription", mock.Anything, "sub_1").Return(nil, upstreamDown())

	subs := svc.GetCustomerSubscriptions(context.Background(), "cus_1")
	assert.NotNil(t, subs)
	assert.Empty(t, subs)
	assert.Nil(t, svc.GetSubscription(context.Background(), "sub_1"))
}

func TestCancelSubscription(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		gw := new(MockGateway)
		svc := newGatewayService(gw, &fakeClock{t: time.Now()})
		gw.On("CancelSubscription", mock.Anything, mock.MatchedBy(func(req *provider.CancelSubscriptionRequest) bool {
			return req.SubscriptionID == "sub_1" && req.AtPeriodEnd
		})).Return(nil)

		assert.Equal(t, MutationResult{Success: true}, svc.CancelSubscription(context.Background(), "sub_1"))
	})

	t.Run("client error is not retried", func(t *testing.T) {
		gw := new(MockGateway)
		svc := newGatewayService(gw, &fakeClock{t: time.Now()})
		gw.On("CancelSubscription", mock.Anything, mock.Anything).
			Return(&provider.ProviderError{HTTPStatus: 404, Message: "no such subscription"})

		result := svc.CancelSubscription(context.Background(), "sub_missing")
		assert.False(t, result.Success)
		assert.Equal(t, errors.ErrNotFound, result.Code)
		assert.NotEmpty(t, result.Error)
		gw.AssertNumberOfCalls(t, "CancelSubscription", 1)
	})
}

func TestChangePlan_ReportsRateLimit(t *testing.T) {
	gw := new(MockGateway)
	svc := newGatewayService(gw, &fakeClock{t: time.Now()})
	gw.On("ChangePlan", mock.Anything, mock.Anything).
		Return(&provider.ProviderError{HTTPStatus: 429, Message: "slow down"})

	result := svc.ChangePlan(context.Background(), "sub_1", "pdt_team")
	assert.False(t, result.Success)
	assert.Equal(t, errors.ErrRateLimited, result.Code)
	gw.AssertNumberOfCalls(t, "ChangePlan", 1+testPolicies().Mutation.MaxRetries)
}
