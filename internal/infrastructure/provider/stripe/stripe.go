// Package stripe adapts the Stripe API to provider.Gateway. Stripe's own
// network retries are disabled; retry policy belongs to the caller.
package stripe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"go.uber.org/zap"
)

// Provider implements provider.Gateway for Stripe. Plan ids are Stripe
// price ids, since checkout and plan changes operate on prices.
type Provider struct {
	api       *client.API
	logger    *zap.Logger
	cancelURL string
}

var _ provider.Gateway = (*Provider)(nil)

// NewProvider builds a client. backendURL is empty in production and points
// at a fake server in tests.
func NewProvider(secretKey, backendURL, cancelURL string, logger *zap.Logger) *Provider {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if backendURL != "" {
		cfg.URL = stripe.String(backendURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)

	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Provider{
		api:       api,
		logger:    logger.Named("stripe"),
		cancelURL: cancelURL,
	}
}

func (p *Provider) Name() provider.ProviderType {
	return provider.ProviderTypeStripe
}

func (p *Provider) SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(10)

	var customers []entity.Customer
	iter := p.api.Customers.List(params)
	for iter.Next() {
		c := iter.Customer()
		if c.Deleted {
			continue
		}
		customers = append(customers, customerFromStripe(c))
	}
	if err := iter.Err(); err != nil {
		return nil, translateError(err)
	}
	return customers, nil
}

func (p *Provider) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*entity.Customer, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(req.Email),
		Name:  stripe.String(req.Name),
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	c, err := p.api.Customers.New(params)
	if err != nil {
		return nil, translateError(err)
	}
	customer := customerFromStripe(c)
	return &customer, nil
}

func (p *Provider) UpdateCustomerName(ctx context.Context, req *provider.UpdateCustomerRequest) error {
	params := &stripe.CustomerParams{Name: stripe.String(req.Name)}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	_, err := p.api.Customers.Update(req.CustomerID, params)
	return translateError(err)
}

func (p *Provider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*entity.CheckoutSession, error) {
	quantity := int64(req.Quantity)
	if quantity <= 0 {
		quantity = 1
	}
	cancelURL := p.cancelURL
	if cancelURL == "" {
		cancelURL = req.ReturnURL
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(req.CustomerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(req.ReturnURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.ProductID), Quantity: stripe.Int64(quantity)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, translateError(err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("checkout session %s has no url", s.ID)
	}

	session := &entity.CheckoutSession{
		SessionID: s.ID,
		URL:       s.URL,
		Metadata:  s.Metadata,
	}
	if s.ExpiresAt > 0 {
		expires := time.Unix(s.ExpiresAt, 0).UTC()
		session.ExpiresAt = &expires
	}
	return session, nil
}

func (p *Provider) ListProducts(ctx context.Context) ([]entity.Plan, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.Limit = stripe.Int64(100)
	params.AddExpand("data.product")

	var plans []entity.Plan
	iter := p.api.Prices.List(params)
	for iter.Next() {
		price := iter.Price()
		if price.Product == nil || !price.Product.Active {
			continue
		}
		plans = append(plans, planFromPrice(price))
	}
	if err := iter.Err(); err != nil {
		return nil, translateError(err)
	}
	return plans, nil
}

func (p *Provider) ListSubscriptions(ctx context.Context, customerID string) ([]entity.Subscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var subs []entity.Subscription
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, *SubscriptionFromStripe(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, translateError(err)
	}
	return subs, nil
}

func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, translateError(err)
	}
	return SubscriptionFromStripe(s), nil
}

func (p *Provider) CancelSubscription(ctx context.Context, req *provider.CancelSubscriptionRequest) error {
	if req.AtPeriodEnd {
		params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
		params.Context = ctx
		if req.IdempotencyKey != "" {
			params.SetIdempotencyKey(req.IdempotencyKey)
		}
		_, err := p.api.Subscriptions.Update(req.SubscriptionID, params)
		return translateError(err)
	}

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	_, err := p.api.Subscriptions.Cancel(req.SubscriptionID, params)
	return translateError(err)
}

func (p *Provider) ChangePlan(ctx context.Context, req *provider.ChangePlanRequest) error {
	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	current, err := p.api.Subscriptions.Get(req.SubscriptionID, getParams)
	if err != nil {
		return translateError(err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return &provider.ProviderError{HTTPStatus: 409, Code: "no_items", Message: "subscription has no items to change"}
	}

	proration := "create_prorations"
	if req.ProrationMode == "none" {
		proration = "none"
	}
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(req.ProductID)},
		},
		ProrationBehavior: stripe.String(proration),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	_, err = p.api.Subscriptions.Update(req.SubscriptionID, params)
	return translateError(err)
}

func customerFromStripe(c *stripe.Customer) entity.Customer {
	customer := entity.Customer{
		ExternalID: c.ID,
		Email:      c.Email,
		Name:       c.Name,
	}
	if len(c.Metadata) > 0 {
		customer.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			customer.Metadata[k] = v
		}
	}
	return customer
}

func planFromPrice(price *stripe.Price) entity.Plan {
	plan := entity.Plan{
		ID:           price.ID,
		Name:         price.Product.Name,
		Description:  price.Product.Description,
		Price:        price.UnitAmount,
		Currency:     strings.ToUpper(string(price.Currency)),
		TaxInclusive: price.TaxBehavior == stripe.PriceTaxBehaviorInclusive,
		Recurring:    price.Type == stripe.PriceTypeRecurring,
		DisplayPrice: entity.MinorToMajor(price.UnitAmount),
	}
	if price.Recurring != nil {
		plan.BillingInterval = string(price.Recurring.Interval)
		plan.IntervalCount = int(price.Recurring.IntervalCount)
	}
	return plan
}

// SubscriptionFromStripe maps a Stripe subscription; it is also used when
// translating Stripe webhook events.
func SubscriptionFromStripe(s *stripe.Subscription) *entity.Subscription {
	sub := &entity.Subscription{
		ExternalID:        s.ID,
		ProviderStatus:    string(s.Status),
		Status:            mapper.NormalizeStatus(string(s.Status)),
		Currency:          strings.ToUpper(string(s.Currency)),
		CancelAtPeriodEnd: s.CancelAtPeriodEnd,
	}
	if s.Customer != nil {
		sub.CustomerID = s.Customer.ID
	}
	if len(s.Metadata) > 0 {
		sub.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			sub.Metadata[k] = v
		}
	}
	sub.CurrentPeriodStart = unixPtr(s.CurrentPeriodStart)
	sub.CurrentPeriodEnd = unixPtr(s.CurrentPeriodEnd)
	sub.CancelledAt = unixPtr(s.CanceledAt)

	if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
		price := s.Items.Data[0].Price
		sub.PlanID = price.ID
		sub.Amount = entity.MinorToMajor(price.UnitAmount)
		if price.Product != nil {
			sub.PlanName = price.Product.Name
		}
	}
	return sub
}

func unixPtr(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// translateError converts *stripe.Error into a ProviderError so the HTTP
// status drives retry classification. Transport errors pass through.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*stripe.Error); ok {
		status := se.HTTPStatusCode
		if status == 0 {
			status = 502
		}
		return &provider.ProviderError{
			HTTPStatus: status,
			Code:       string(se.Code),
			Message:    se.Msg,
		}
	}
	return err
}
