package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/billing-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/internal/infrastructure/resilience"
	"go.uber.org/zap"
)

// MockGateway is a mock implementation of provider.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Customer), args.Error(1)
}

func (m *MockGateway) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*entity.Customer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Customer), args.Error(1)
}

func (m *MockGateway) UpdateCustomerName(ctx context.Context, req *provider.UpdateCustomerRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*entity.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ListProducts(ctx context.Context) ([]entity.Plan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Plan), args.Error(1)
}

func (m *MockGateway) ListSubscriptions(ctx context.Context, customerID string) ([]entity.Subscription, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Subscription), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, req *provider.CancelSubscriptionRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) ChangePlan(ctx context.Context, req *provider.ChangePlanRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockGateway) Name() provider.ProviderType {
	return provider.ProviderTypeDodo
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testPolicies() GatewayPolicies {
	return GatewayPolicies{
		Read:     resilience.Policy{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2},
		Mutation: resilience.Policy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 2},
	}
}

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(zap.NewNop(),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

// memSubscriptionRepo is an in-memory SubscriptionRepository keyed by external id.
type memSubscriptionRepo struct {
	mu        sync.Mutex
	rows      map[string]entity.Subscription
	nextID    int64
	upsertErr error
	listErr   error
}

func newMemSubscriptionRepo(subs ...*entity.Subscription) *memSubscriptionRepo {
	r := &memSubscriptionRepo{rows: map[string]entity.Subscription{}}
	for _, s := range subs {
		_ = r.Upsert(context.Background(), s)
	}
	return r
}

func (r *memSubscriptionRepo) Upsert(_ context.Context, s *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if cur, ok := r.rows[s.ExternalID]; ok {
		s.ID = cur.ID
	} else {
		r.nextID++
		s.ID = r.nextID
	}
	r.rows[s.ExternalID] = *s
	return nil
}

func (r *memSubscriptionRepo) GetByExternalID(_ context.Context, externalID string) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[externalID]
	if !ok {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	return &s, nil
}

func (r *memSubscriptionRepo) Update(_ context.Context, s *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	if _, ok := r.rows[s.ExternalID]; !ok {
		return domainErrors.ErrSubscriptionNotFound
	}
	r.rows[s.ExternalID] = *s
	return nil
}

func (r *memSubscriptionRepo) UpdateFields(_ context.Context, externalID string, patch entity.SubscriptionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	cur, ok := r.rows[externalID]
	if !ok {
		return domainErrors.ErrSubscriptionNotFound
	}
	if patch.CancelAtPeriodEnd != nil {
		cur.CancelAtPeriodEnd = *patch.CancelAtPeriodEnd
	}
	if patch.PlanID != nil {
		cur.PlanID = *patch.PlanID
	}
	if patch.PlanName != nil {
		cur.PlanName = *patch.PlanName
	}
	if patch.Amount != nil {
		cur.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		cur.Currency = *patch.Currency
	}
	cur.UpdatedAt = patch.UpdatedAt
	r.rows[externalID] = cur
	return nil
}

func (r *memSubscriptionRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*entity.Subscription
	for _, s := range r.rows {
		if s.UserID == userID {
			s := s
			out = append(out, &s)
		}
	}
	return out, nil
}

func (r *memSubscriptionRepo) get(externalID string) (entity.Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[externalID]
	return s, ok
}

type memCustomerRepo struct {
	byExternal map[string]entity.Customer
	upserted   []entity.Customer
	upsertErr  error
}

func newMemCustomerRepo(customers ...entity.Customer) *memCustomerRepo {
	r := &memCustomerRepo{byExternal: map[string]entity.Customer{}}
	for _, c := range customers {
		r.byExternal[c.ExternalID] = c
	}
	return r
}

func (r *memCustomerRepo) Upsert(_ context.Context, c *entity.Customer) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.byExternal[c.ExternalID] = *c
	r.upserted = append(r.upserted, *c)
	return nil
}

func (r *memCustomerRepo) GetByExternalID(_ context.Context, externalID string) (*entity.Customer, error) {
	c, ok := r.byExternal[externalID]
	if !ok {
		return nil, domainErrors.ErrCustomerNotFound
	}
	return &c, nil
}

func (r *memCustomerRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*entity.Customer, error) {
	for _, c := range r.byExternal {
		if c.UserID != nil && *c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, domainErrors.ErrCustomerNotFound
}

type memUserRepo struct {
	statuses  map[uuid.UUID]entity.SubscriptionStatus
	onboarded map[uuid.UUID]bool
	err       error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		statuses:  map[uuid.UUID]entity.SubscriptionStatus{},
		onboarded: map[uuid.UUID]bool{},
	}
}

func (r *memUserRepo) UpdateSubscriptionStatus(_ context.Context, userID uuid.UUID, status entity.SubscriptionStatus) error {
	if r.err != nil {
		return r.err
	}
	r.statuses[userID] = status
	return nil
}

func (r *memUserRepo) IsOnboardingCompleted(_ context.Context, userID uuid.UUID) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	done, ok := r.onboarded[userID]
	if !ok {
		return false, domainErrors.ErrUserNotFound
	}
	return done, nil
}

type memAuditRepo struct {
	events []entity.AuditEvent
	err    error
}

func (r *memAuditRepo) Append(_ context.Context, e *entity.AuditEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, *e)
	return nil
}

func (r *memAuditRepo) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]*entity.AuditEvent, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*entity.AuditEvent
	for i := range r.events {
		if r.events[i].UserID == userID && (limit <= 0 || len(out) < limit) {
			out = append(out, &r.events[i])
		}
	}
	return out, nil
}

type published struct {
	channel string
	message interface{}
}

type recordingPublisher struct {
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, message interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{channel: channel, message: message})
	return nil
}
