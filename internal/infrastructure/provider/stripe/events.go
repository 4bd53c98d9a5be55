package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// SignatureHeader carries Stripe's webhook signature.
const SignatureHeader = "Stripe-Signature"

// ConstructEvent verifies the signature and decodes the event. Stripe's own
// five minute tolerance applies.
func ConstructEvent(body []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(body, signature, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
}

// TranslateEvent maps a Stripe event onto the internal event vocabulary so
// the same projector handles both providers. ok is false for events with no
// internal counterpart.
func TranslateEvent(evt stripe.Event) (out *entity.WebhookEvent, ok bool, err error) {
	var eventType string
	var data map[string]interface{}

	switch evt.Type {
	case "customer.subscription.created", "customer.subscription.updated",
		"customer.subscription.deleted", "customer.subscription.paused",
		"customer.subscription.resumed":
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, false, fmt.Errorf("failed to decode subscription event: %w", err)
		}
		eventType = subscriptionEventType(string(evt.Type), sub.Status)
		data = subscriptionPayload(&sub)

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, false, fmt.Errorf("failed to decode invoice event: %w", err)
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			return nil, false, nil
		}
		eventType = entity.EventPaymentSucceeded
		if evt.Type == "invoice.payment_failed" {
			eventType = entity.EventPaymentFailed
		}
		data = map[string]interface{}{
			"payment_id":      inv.ID,
			"subscription_id": inv.Subscription.ID,
			"amount":          inv.AmountDue,
			"currency":        string(inv.Currency),
		}
	}

	if eventType == "" {
		return nil, false, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, false, err
	}
	ts := time.Unix(evt.Created, 0).UTC()
	return &entity.WebhookEvent{ID: evt.ID, Type: eventType, Timestamp: &ts, Data: raw}, true, nil
}

// subscriptionEventType picks the internal type from the subscription's
// status. Paying states upsert so checkouts whose creation event arrived as
// "incomplete" still land once payment clears.
func subscriptionEventType(stripeType string, status stripe.SubscriptionStatus) string {
	if stripeType == "customer.subscription.deleted" {
		return entity.EventSubscriptionCancelled
	}
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return entity.EventSubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return entity.EventPaymentFailed
	case stripe.SubscriptionStatusPaused:
		return entity.EventSubscriptionOnHold
	case stripe.SubscriptionStatusCanceled:
		return entity.EventSubscriptionCancelled
	case stripe.SubscriptionStatusIncompleteExpired:
		return entity.EventSubscriptionExpired
	default:
		return ""
	}
}

func subscriptionPayload(s *stripe.Subscription) map[string]interface{} {
	sub := SubscriptionFromStripe(s)
	data := map[string]interface{}{
		"subscription_id":      sub.ExternalID,
		"customer_id":          sub.CustomerID,
		"status":               sub.ProviderStatus,
		"price_id":             sub.PlanID,
		"product_name":         sub.PlanName,
		"currency":             sub.Currency,
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"metadata":             sub.Metadata,
	}
	if !sub.Amount.IsZero() {
		data["recurring_pre_tax_amount"] = sub.Amount.Shift(2).IntPart()
	}
	putTime(data, "previous_billing_date", sub.CurrentPeriodStart)
	putTime(data, "next_billing_date", sub.CurrentPeriodEnd)
	putTime(data, "cancelled_at", sub.CancelledAt)
	return data
}

func putTime(data map[string]interface{}, key string, t *time.Time) {
	if t != nil {
		data[key] = t.Format(time.RFC3339)
	}
}
