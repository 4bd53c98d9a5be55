package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

func newSubscriptionService(gw *MockGateway, subs *memSubscriptionRepo, users *memUserRepo, now time.Time) *SubscriptionService {
	return newSubscriptionServiceWith(gw, subs, newMemCustomerRepo(), users, &memAuditRepo{}, now)
}

func newSubscriptionServiceWith(gw *MockGateway, subs *memSubscriptionRepo, customers *memCustomerRepo, users *memUserRepo, audit *memAuditRepo, now time.Time) *SubscriptionService {
	svc := NewSubscriptionService(newGatewayService(gw, &fakeClock{t: now}), subs, customers, users, audit, zap.NewNop())
	svc.now = func() time.Time { return now }
	return svc
}

func TestGetBillingStatus(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	userID := uuid.New()
	end := now.Add(48 * time.Hour)

	t.Run("resolves access and onboarding", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("ListProducts", mock.Anything).Return([]entity.Plan{{ID: "pdt_pro", Name: "Pro"}}, nil)
		subs := newMemSubscriptionRepo(&entity.Subscription{
			ExternalID: "sub_1", UserID: userID, Status: entity.SubscriptionStatusActive,
			PlanID: "pdt_pro", CurrentPeriodEnd: &end,
		})
		users := newMemUserRepo()
		users.onboarded[userID] = true

		status := newSubscriptionService(gw, subs, users, now).GetBillingStatus(context.Background(), userID)
		assert.True(t, status.Access.HasAccess)
		assert.Equal(t, "Pro", status.Access.PlanName)
		assert.True(t, status.OnboardingCompleted)
	})

	t.Run("store failure degrades to inactive", func(t *testing.T) {
		gw := new(MockGateway)
		subs := newMemSubscriptionRepo()
		subs.listErr = fmt.Errorf("db down")

		status := newSubscriptionService(gw, subs, newMemUserRepo(), now).GetBillingStatus(context.Background(), userID)
		assert.Equal(t, entity.InactiveView(), status.Access)
		assert.False(t, status.OnboardingCompleted)
		gw.AssertNotCalled(t, "ListProducts", mock.Anything)
	})
}

func TestSubscriptionService_Cancel(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	seed := func() *memSubscriptionRepo {
		return newMemSubscriptionRepo(&entity.Subscription{
			ExternalID: "sub_1", UserID: owner, Status: entity.SubscriptionStatusActive,
		})
	}

	t.Run("owner cancels at period end", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CancelSubscription", mock.Anything, mock.Anything).Return(nil)
		subs := seed()

		result := newSubscriptionService(gw, subs, newMemUserRepo(), now).Cancel(context.Background(), owner, "sub_1")
		assert.True(t, result.Success)
		sub, _ := subs.get("sub_1")
		assert.True(t, sub.CancelAtPeriodEnd)
		assert.Equal(t, entity.SubscriptionStatusActive, sub.Status)
	})

	t.Run("someone else's subscription reads as not found", func(t *testing.T) {
		gw := new(MockGateway)
		result := newSubscriptionService(gw, seed(), newMemUserRepo(), now).Cancel(context.Background(), uuid.New(), "sub_1")
		assert.False(t, result.Success)
		assert.Equal(t, errors.ErrNotFound, result.Code)
		gw.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})

	t.Run("provider failure leaves the row untouched", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("CancelSubscription", mock.Anything, mock.Anything).
			Return(&provider.ProviderError{HTTPStatus: 400, Message: "already cancelled"})
		subs := seed()

		result := newSubscriptionService(gw, subs, newMemUserRepo(), now).Cancel(context.Background(), owner, "sub_1")
		assert.False(t, result.Success)
		assert.Equal(t, errors.ErrInvalidArgument, result.Code)
		sub, _ := subs.get("sub_1")
		assert.False(t, sub.CancelAtPeriodEnd)
	})
}

func TestSubscriptionService_ChangePlan(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	gw := new(MockGateway)
	gw.On("ChangePlan", mock.Anything, mock.MatchedBy(func(req *provider.ChangePlanRequest) bool {
		return req.SubscriptionID == "sub_1" && req.ProductID == "pdt_team"
	})).Return(nil)
	gw.On("ListProducts", mock.Anything).Return([]entity.Plan{
		{ID: "pdt_team", Name: "Team", Price: 4900, Currency: "USD", DisplayPrice: entity.MinorToMajor(4900)},
	}, nil)
	subs := newMemSubscriptionRepo(&entity.Subscription{
		ExternalID: "sub_1", UserID: owner, Status: entity.SubscriptionStatusActive, PlanID: "pdt_pro",
	})
	svc := newSubscriptionService(gw, subs, newMemUserRepo(), now)

	result := svc.ChangePlan(context.Background(), owner, "sub_1", "pdt_team")
	require.True(t, result.Success)
	sub, _ := subs.get("sub_1")
	assert.Equal(t, "pdt_team", sub.PlanID)
	assert.Equal(t, "Team", sub.PlanName)

	// same plan again is a no-op
	assert.True(t, svc.ChangePlan(context.Background(), owner, "sub_1", "pdt_team").Success)
	gw.AssertNumberOfCalls(t, "ChangePlan", 1)

	assert.Equal(t, errors.ErrInvalidArgument, svc.ChangePlan(context.Background(), owner, "sub_1", "").Code)
}

// A webhook applied while the provider call is in flight must survive the
// local write that follows it.
func TestSubscriptionService_KeepsConcurrentWebhookWrites(t *testing.T) {
	owner := uuid.New()
	paymentFailed := func(t *testing.T, f *projectorFixture) func(mock.Arguments) {
		return func(mock.Arguments) {
			_, err := f.projector.Project(context.Background(), webhookEvent(t, entity.EventPaymentFailed, projectorNow,
				map[string]interface{}{"payment_id": "pay_1", "subscription_id": "sub_1"}))
			require.NoError(t, err)
		}
	}
	seed := func() *projectorFixture {
		return newProjectorFixture(ProjectorOptions{}, &entity.Subscription{
			ExternalID: "sub_1", UserID: owner, Status: entity.SubscriptionStatusActive, PlanID: "pdt_pro",
		})
	}

	t.Run("cancel", func(t *testing.T) {
		f := seed()
		gw := new(MockGateway)
		gw.On("CancelSubscription", mock.Anything, mock.Anything).Run(paymentFailed(t, f)).Return(nil)

		result := newSubscriptionService(gw, f.subs, f.users, projectorNow).Cancel(context.Background(), owner, "sub_1")
		require.True(t, result.Success)

		sub, _ := f.subs.get("sub_1")
		assert.Equal(t, entity.SubscriptionStatusPastDue, sub.Status)
		assert.True(t, sub.CancelAtPeriodEnd)
		require.NotNil(t, sub.LastEventAt)
		assert.True(t, projectorNow.Equal(*sub.LastEventAt))
	})

	t.Run("change plan", func(t *testing.T) {
		f := seed()
		gw := new(MockGateway)
		gw.On("ChangePlan", mock.Anything, mock.Anything).Run(paymentFailed(t, f)).Return(nil)
		gw.On("ListProducts", mock.Anything).Return([]entity.Plan{
			{ID: "pdt_team", Name: "Team", Price: 4900, Currency: "USD", DisplayPrice: entity.MinorToMajor(4900)},
		}, nil)

		result := newSubscriptionService(gw, f.subs, f.users, projectorNow).ChangePlan(context.Background(), owner, "sub_1", "pdt_team")
		require.True(t, result.Success)

		sub, _ := f.subs.get("sub_1")
		assert.Equal(t, entity.SubscriptionStatusPastDue, sub.Status)
		assert.Equal(t, "pdt_team", sub.PlanID)
		assert.Equal(t, "Team", sub.PlanName)
		require.NotNil(t, sub.LastEventAt)
	})
}

func TestSubscriptionService_ListForUser_FallsBackToProvider(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()

	t.Run("stored rows win", func(t *testing.T) {
		gw := new(MockGateway)
		subs := newMemSubscriptionRepo(&entity.Subscription{ExternalID: "sub_1", UserID: owner})

		got, err := newSubscriptionService(gw, subs, newMemUserRepo(), now).ListForUser(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 1)
		gw.AssertNotCalled(t, "ListSubscriptions", mock.Anything, mock.Anything)
	})

	t.Run("not yet projected", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("ListSubscriptions", mock.Anything, "cus_1").Return([]entity.Subscription{
			{ExternalID: "sub_new", CustomerID: "cus_1", Status: entity.SubscriptionStatusActive},
		}, nil)
		customers := newMemCustomerRepo(entity.Customer{ExternalID: "cus_1", UserID: &owner})
		subs := newMemSubscriptionRepo()

		got, err := newSubscriptionServiceWith(gw, subs, customers, newMemUserRepo(), &memAuditRepo{}, now).
			ListForUser(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "sub_new", got[0].ExternalID)
		assert.Equal(t, owner, got[0].UserID)
		_, stored := subs.get("sub_new")
		assert.False(t, stored)
	})

	t.Run("no customer link", func(t *testing.T) {
		gw := new(MockGateway)
		got, err := newSubscriptionService(gw, newMemSubscriptionRepo(), newMemUserRepo(), now).ListForUser(context.Background(), owner)
		require.NoError(t, err)
		assert.Empty(t, got)
		gw.AssertNotCalled(t, "ListSubscriptions", mock.Anything, mock.Anything)
	})
}

func TestSubscriptionService_Cancel_NotYetProjected(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	customers := func() *memCustomerRepo {
		return newMemCustomerRepo(entity.Customer{ExternalID: "cus_1", UserID: &owner})
	}

	t.Run("owned through the customer link", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("GetSubscription", mock.Anything, "sub_new").
			Return(&entity.Subscription{ExternalID: "sub_new", CustomerID: "cus_1", Status: entity.SubscriptionStatusActive}, nil)
		gw.On("CancelSubscription", mock.Anything, mock.Anything).Return(nil)
		subs := newMemSubscriptionRepo()

		result := newSubscriptionServiceWith(gw, subs, customers(), newMemUserRepo(), &memAuditRepo{}, now).
			Cancel(context.Background(), owner, "sub_new")
		assert.True(t, result.Success)
		_, stored := subs.get("sub_new")
		assert.False(t, stored)
	})

	t.Run("another customer's subscription", func(t *testing.T) {
		gw := new(MockGateway)
		gw.On("GetSubscription", mock.Anything, "sub_new").
			Return(&entity.Subscription{ExternalID: "sub_new", CustomerID: "cus_other"}, nil)

		result := newSubscriptionServiceWith(gw, newMemSubscriptionRepo(), customers(), newMemUserRepo(), &memAuditRepo{}, now).
			Cancel(context.Background(), owner, "sub_new")
		assert.False(t, result.Success)
		assert.Equal(t, errors.ErrNotFound, result.Code)
		gw.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
	})
}

func TestSubscriptionService_History(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	owner := uuid.New()
	audit := &memAuditRepo{}
	for i := 0; i < defaultHistoryLimit+5; i++ {
		audit.events = append(audit.events, entity.AuditEvent{UserID: owner, SubscriptionID: "sub_1"})
	}
	audit.events = append(audit.events, entity.AuditEvent{UserID: uuid.New(), SubscriptionID: "sub_2"})
	svc := newSubscriptionServiceWith(new(MockGateway), newMemSubscriptionRepo(), newMemCustomerRepo(), newMemUserRepo(), audit, now)

	events, err := svc.History(context.Background(), owner, 0)
	require.NoError(t, err)
	assert.Len(t, events, defaultHistoryLimit)

	events, err = svc.History(context.Background(), owner, 3)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	audit.err = fmt.Errorf("db down")
	_, err = svc.History(context.Background(), owner, 3)
	assert.Error(t, err)
}
