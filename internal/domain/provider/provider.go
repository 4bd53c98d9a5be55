package provider

import (
	"context"
	"fmt"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// Gateway is the raw, unretried surface of a subscription provider. Every
// method performs exactly one remote call; retry and fallback policy live in
// the usecase layer.
type Gateway interface {
	SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error)
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*entity.Customer, error)
	UpdateCustomerName(ctx context.Context, req *UpdateCustomerRequest) error

	CreateCheckoutSession(ctx context.Context, req *CheckoutRequest) (*entity.CheckoutSession, error)
	ListProducts(ctx context.Context) ([]entity.Plan, error)

	ListSubscriptions(ctx context.Context, customerID string) ([]entity.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*entity.Subscription, error)
	CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) error
	ChangePlan(ctx context.Context, req *ChangePlanRequest) error

	Name() ProviderType
}

// Mutating requests carry an IdempotencyKey that is generated once per
// logical call and reused across retries of that call.

type CreateCustomerRequest struct {
	Email          string
	Name           string
	Metadata       map[string]string
	IdempotencyKey string
}

type UpdateCustomerRequest struct {
	CustomerID     string
	Name           string
	IdempotencyKey string
}

type CheckoutRequest struct {
	CustomerID     string
	ProductID      string
	Quantity       int
	ReturnURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

type CancelSubscriptionRequest struct {
	SubscriptionID string
	// AtPeriodEnd keeps access until the current period ends.
	AtPeriodEnd    bool
	IdempotencyKey string
}

type ChangePlanRequest struct {
	SubscriptionID string
	ProductID      string
	Quantity       int
	ProrationMode  string
	IdempotencyKey string
}

// ProviderType represents the type of subscription provider
type ProviderType string

const (
	ProviderTypeDodo   ProviderType = "dodo"
	ProviderTypeStripe ProviderType = "stripe"
)

// ProviderError carries the provider's own error report. It is wrapped in a
// classified pkg/errors.AppError before leaving an adapter.
type ProviderError struct {
	HTTPStatus int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.HTTPStatus, e.Message)
}
