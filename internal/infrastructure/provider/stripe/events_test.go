package stripe

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

func stripeEvent(t *testing.T, eventType string, object string) stripe.Event {
	t.Helper()
	return stripe.Event{
		ID:      "evt_1",
		Type:    stripe.EventType(eventType),
		Created: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Data:    &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

const subscriptionObject = `{
	"id": "sub_1",
	"object": "subscription",
	"status": "%s",
	"customer": "cus_1",
	"currency": "usd",
	"cancel_at_period_end": false,
	"current_period_start": 1759276800,
	"current_period_end": 1761955200,
	"metadata": {"user_id": "550e8400-e29b-41d4-a716-446655440000"},
	"items": {"object": "list", "data": [{"id": "si_1", "price": {"id": "price_pro", "unit_amount": 1900, "currency": "usd"}}]}
}`

func TestTranslateEvent_Subscription(t *testing.T) {
	tests := []struct {
		stripeType string
		status     string
		want       string
	}{
		{"customer.subscription.created", "active", entity.EventSubscriptionActive},
		{"customer.subscription.updated", "trialing", entity.EventSubscriptionActive},
		{"customer.subscription.updated", "past_due", entity.EventPaymentFailed},
		{"customer.subscription.paused", "paused", entity.EventSubscriptionOnHold},
		{"customer.subscription.deleted", "canceled", entity.EventSubscriptionCancelled},
		{"customer.subscription.updated", "incomplete_expired", entity.EventSubscriptionExpired},
	}

	for _, tt := range tests {
		t.Run(tt.stripeType+"/"+tt.status, func(t *testing.T) {
			evt, ok, err := TranslateEvent(stripeEvent(t, tt.stripeType, fmt.Sprintf(subscriptionObject, tt.status)))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, evt.Type)
			assert.Equal(t, "evt_1", evt.ID)

			payload, err := mapper.Decode(evt.Data)
			require.NoError(t, err)
			sub, err := mapper.SubscriptionFromPayload(payload)
			require.NoError(t, err)
			assert.Equal(t, "sub_1", sub.ExternalID)
			assert.Equal(t, "cus_1", sub.CustomerID)
			assert.Equal(t, "price_pro", sub.PlanID)
			assert.Equal(t, "19", sub.Amount.String())
			require.NotNil(t, sub.CurrentPeriodEnd)
			assert.Equal(t, int64(1761955200), sub.CurrentPeriodEnd.Unix())
			assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", sub.Metadata["user_id"])
		})
	}
}

func TestTranslateEvent_IncompleteIsSkipped(t *testing.T) {
	_, ok, err := TranslateEvent(stripeEvent(t, "customer.subscription.created", fmt.Sprintf(subscriptionObject, "incomplete")))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTranslateEvent_Invoice(t *testing.T) {
	evt, ok, err := TranslateEvent(stripeEvent(t, "invoice.payment_succeeded",
		`{"id": "in_1", "object": "invoice", "subscription": "sub_1", "amount_due": 1900, "currency": "usd"}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entity.EventPaymentSucceeded, evt.Type)

	payload, err := mapper.Decode(evt.Data)
	require.NoError(t, err)
	assert.Equal(t, "sub_1", mapper.FirstString(payload, "subscription_id"))

	_, ok, err = TranslateEvent(stripeEvent(t, "invoice.payment_failed", `{"id": "in_2", "object": "invoice"}`))
	require.NoError(t, err)
	assert.False(t, ok, "one-off invoices have no subscription to move")
}

func TestTranslateEvent_UnhandledType(t *testing.T) {
	_, ok, err := TranslateEvent(stripeEvent(t, "charge.refunded", `{"id": "ch_1"}`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConstructEvent(t *testing.T) {
	body := []byte(`{"id": "evt_1", "object": "event", "type": "invoice.payment_succeeded", "data": {"object": {}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	evt, err := ConstructEvent(body, signed.Header, "whsec_test")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)

	_, err = ConstructEvent(body, signed.Header, "whsec_other")
	assert.Error(t, err)
}
