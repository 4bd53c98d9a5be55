package mapper

import (
	"fmt"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// Ordered fallback lists. The first entry is the current API name.
var (
	CheckoutIDFields     = []string{"session_id", "checkout_session_id", "id", "payment_id"}
	CheckoutURLFields    = []string{"checkout_url", "url", "payment_link", "link"}
	CheckoutExpiryFields = []string{"expires_at", "expiry", "expires_on", "created_at"}

	CustomerIDFields     = []string{"customer_id", "id"}
	SubscriptionIDFields = []string{"subscription_id", "id"}
	ProductIDFields      = []string{"product_id", "id"}

	PeriodStartFields = []string{"previous_billing_date", "current_period_start", "created_at"}
	PeriodEndFields   = []string{"next_billing_date", "current_period_end", "expires_at"}
	AmountFields      = []string{"recurring_pre_tax_amount", "amount", "price"}
	IntervalFields    = []string{"interval", "payment_frequency_interval", "subscription_period_interval", "billing_interval"}
	IntervalCount     = []string{"interval_count", "payment_frequency_count", "subscription_period_count"}
)

// CheckoutSessionFromPayload extracts the redirect handle. A response without
// any usable URL is an error: the client would have nowhere to go.
func CheckoutSessionFromPayload(p Payload) (*entity.CheckoutSession, error) {
	url := FirstString(p, CheckoutURLFields...)
	if url == "" {
		return nil, fmt.Errorf("checkout response has none of %v", CheckoutURLFields)
	}
	return &entity.CheckoutSession{
		SessionID: FirstString(p, CheckoutIDFields...),
		URL:       url,
		ExpiresAt: FirstTime(p, CheckoutExpiryFields...),
		Metadata:  StringMap(p, "metadata"),
	}, nil
}

// CustomerFromPayload maps a provider customer object.
func CustomerFromPayload(p Payload) entity.Customer {
	return entity.Customer{
		ExternalID: FirstString(p, CustomerIDFields...),
		Email:      FirstString(p, "email"),
		Name:       FirstString(p, "name", "full_name"),
		Metadata:   Object(p, "metadata"),
	}
}

// PlanFromProduct normalizes a product whose price is either an integer in
// minor units or a nested object carrying price, currency, tax flag and
// interval. Products without a price are skipped.
func PlanFromProduct(p Payload) (entity.Plan, bool) {
	plan := entity.Plan{
		ID:          FirstString(p, ProductIDFields...),
		Name:        FirstString(p, "name", "title"),
		Description: FirstString(p, "description"),
		Currency:    FirstString(p, "currency"),
	}
	if plan.ID == "" {
		return entity.Plan{}, false
	}

	priceFound := false
	if nested := Object(p, "price_detail"); nested != nil {
		priceFound = applyPriceObject(&plan, nested)
	}
	if !priceFound {
		if nested := Object(p, "price"); nested != nil {
			priceFound = applyPriceObject(&plan, nested)
		} else if amount, ok := Int64(p["price"]); ok {
			plan.Price = amount
			priceFound = true
		}
	}
	if !priceFound {
		return entity.Plan{}, false
	}

	if tax, ok := FirstBool(p, "tax_inclusive"); ok {
		plan.TaxInclusive = tax
	}
	if plan.BillingInterval == "" {
		plan.BillingInterval = lower(FirstString(p, IntervalFields...))
	}
	if recurring, ok := FirstBool(p, "is_recurring", "recurring"); ok {
		plan.Recurring = recurring
	} else {
		plan.Recurring = plan.Recurring || plan.BillingInterval != ""
	}
	plan.DisplayPrice = entity.MinorToMajor(plan.Price)
	return plan, true
}

func applyPriceObject(plan *entity.Plan, price Payload) bool {
	amount, ok := FirstInt64(price, "price", "amount", "unit_amount", "fixed_price")
	if !ok {
		return false
	}
	plan.Price = amount
	if currency := FirstString(price, "currency"); currency != "" {
		plan.Currency = currency
	}
	if tax, ok := FirstBool(price, "tax_inclusive"); ok {
		plan.TaxInclusive = tax
	}
	plan.BillingInterval = lower(FirstString(price, IntervalFields...))
	if n, ok := FirstInt64(price, IntervalCount...); ok {
		plan.IntervalCount = int(n)
	}
	if kind := lower(FirstString(price, "type")); kind == "recurring_price" || kind == "recurring" {
		plan.Recurring = true
	}
	return true
}

// PlansFromProducts normalizes a product list, dropping unusable entries.
func PlansFromProducts(items []Payload) []entity.Plan {
	plans := make([]entity.Plan, 0, len(items))
	for _, item := range items {
		if plan, ok := PlanFromProduct(item); ok {
			plans = append(plans, plan)
		}
	}
	return plans
}

// SubscriptionFromPayload maps a subscription object, as found in list/get
// responses and in webhook data. Status is normalized; the raw value is kept
// in ProviderStatus for display.
func SubscriptionFromPayload(p Payload) (*entity.Subscription, error) {
	id := FirstString(p, SubscriptionIDFields...)
	if id == "" {
		return nil, fmt.Errorf("subscription payload has none of %v", SubscriptionIDFields)
	}

	raw := FirstString(p, "status")
	sub := &entity.Subscription{
		ExternalID:         id,
		CustomerID:         FirstString(p, "customer_id"),
		ProviderStatus:     raw,
		Status:             NormalizeStatus(raw),
		PlanID:             FirstString(p, "product_id", "plan_id", "price_id"),
		PlanName:           FirstString(p, "product_name", "plan_name"),
		Currency:           FirstString(p, "currency"),
		CurrentPeriodStart: FirstTime(p, PeriodStartFields...),
		CurrentPeriodEnd:   FirstTime(p, PeriodEndFields...),
		CancelledAt:        FirstTime(p, "cancelled_at", "canceled_at"),
		Metadata:           Object(p, "metadata"),
	}
	if sub.CustomerID == "" {
		if customer := Object(p, "customer"); customer != nil {
			sub.CustomerID = FirstString(customer, CustomerIDFields...)
		}
	}
	if amount, ok := FirstInt64(p, AmountFields...); ok {
		sub.Amount = entity.MinorToMajor(amount)
	}
	if cancelling, ok := FirstBool(p, "cancel_at_next_billing_date", "cancel_at_period_end"); ok {
		sub.CancelAtPeriodEnd = cancelling
	}
	return sub, nil
}

// NormalizeStatus maps provider status vocabularies onto ours. Unknown values
// become pending so they never grant access.
func NormalizeStatus(raw string) entity.SubscriptionStatus {
	switch lower(raw) {
	case "active", "trialing", "renewed":
		return entity.SubscriptionStatusActive
	case "past_due", "unpaid":
		return entity.SubscriptionStatusPastDue
	case "on_hold", "paused":
		return entity.SubscriptionStatusOnHold
	case "cancelled", "canceled":
		return entity.SubscriptionStatusCancelled
	case "expired", "incomplete_expired":
		return entity.SubscriptionStatusExpired
	case "failed":
		return entity.SubscriptionStatusFailed
	default:
		return entity.SubscriptionStatusPending
	}
}
