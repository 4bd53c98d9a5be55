package mapper

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

func mustDecode(t *testing.T, raw string) Payload {
	t.Helper()
	p, err := Decode([]byte(raw))
	require.NoError(t, err)
	return p
}

func TestCheckoutSessionFromPayload_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		url     string
		id      string
		expires bool
	}{
		{"current fields", `{"session_id":"cks_1","checkout_url":"https://pay/1","expires_at":"2026-01-02T03:04:05Z"}`, "https://pay/1", "cks_1", true},
		{"legacy link", `{"payment_id":"pay_2","payment_link":"https://pay/2","created_at":1767322800}`, "https://pay/2", "pay_2", true},
		{"url only", `{"id":"cs_3","url":"https://pay/3"}`, "https://pay/3", "cs_3", false},
		{"first wins", `{"checkout_url":"https://a","url":"https://b"}`, "https://a", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := CheckoutSessionFromPayload(mustDecode(t, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.url, session.URL)
			assert.Equal(t, tt.id, session.SessionID)
			assert.Equal(t, tt.expires, session.ExpiresAt != nil)
		})
	}

	_, err := CheckoutSessionFromPayload(mustDecode(t, `{"session_id":"cks_4"}`))
	assert.Error(t, err)
}

func TestPlanFromProduct_PriceShapes(t *testing.T) {
	t.Run("integer price", func(t *testing.T) {
		plan, ok := PlanFromProduct(mustDecode(t, `{"product_id":"pdt_basic","name":"Basic","price":1999,"currency":"USD","tax_inclusive":false,"is_recurring":true}`))
		require.True(t, ok)
		assert.Equal(t, int64(1999), plan.Price)
		assert.Equal(t, "USD", plan.Currency)
		assert.True(t, plan.Recurring)
		assert.True(t, decimal.RequireFromString("19.99").Equal(plan.DisplayPrice))
	})

	t.Run("nested price object", func(t *testing.T) {
		plan, ok := PlanFromProduct(mustDecode(t, `{"product_id":"pdt_pro","name":"Pro","price":{"type":"recurring_price","price":4900,"currency":"EUR","tax_inclusive":true,"payment_frequency_interval":"Month","payment_frequency_count":1}}`))
		require.True(t, ok)
		assert.Equal(t, int64(4900), plan.Price)
		assert.Equal(t, "EUR", plan.Currency)
		assert.True(t, plan.TaxInclusive)
		assert.Equal(t, "month", plan.BillingInterval)
		assert.Equal(t, 1, plan.IntervalCount)
		assert.True(t, plan.Recurring)
	})

	t.Run("price detail preferred", func(t *testing.T) {
		plan, ok := PlanFromProduct(mustDecode(t, `{"product_id":"pdt_y","price":100,"price_detail":{"price":9900,"currency":"USD","interval":"year"}}`))
		require.True(t, ok)
		assert.Equal(t, int64(9900), plan.Price)
		assert.Equal(t, "year", plan.BillingInterval)
		assert.True(t, plan.Recurring)
	})

	t.Run("no price", func(t *testing.T) {
		_, ok := PlanFromProduct(mustDecode(t, `{"product_id":"pdt_free","name":"Free"}`))
		assert.False(t, ok)
	})
}

func TestSubscriptionFromPayload(t *testing.T) {
	p := mustDecode(t, `{
		"subscription_id": "sub_123",
		"status": "active",
		"product_id": "pdt_pro",
		"recurring_pre_tax_amount": 4900,
		"currency": "USD",
		"previous_billing_date": "2026-09-01T00:00:00Z",
		"next_billing_date": "2026-10-01T00:00:00Z",
		"cancel_at_next_billing_date": true,
		"customer": {"customer_id": "cus_9", "email": "a@b.c"},
		"metadata": {"user_id": "5f0c6a7e-1d53-4a4f-9f3e-0d1c2b3a4f5e"}
	}`)

	sub, err := SubscriptionFromPayload(p)
	require.NoError(t, err)

	assert.Equal(t, "sub_123", sub.ExternalID)
	assert.Equal(t, "cus_9", sub.CustomerID)
	assert.Equal(t, entity.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "active", sub.ProviderStatus)
	assert.Equal(t, "pdt_pro", sub.PlanID)
	assert.True(t, decimal.RequireFromString("49").Equal(sub.Amount))
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *sub.CurrentPeriodEnd)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, "5f0c6a7e-1d53-4a4f-9f3e-0d1c2b3a4f5e", sub.Metadata["user_id"])

	_, err = SubscriptionFromPayload(mustDecode(t, `{"status":"active"}`))
	assert.Error(t, err)
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, entity.SubscriptionStatusActive, NormalizeStatus("trialing"))
	assert.Equal(t, entity.SubscriptionStatusCancelled, NormalizeStatus("canceled"))
	assert.Equal(t, entity.SubscriptionStatusPastDue, NormalizeStatus("PAST_DUE"))
	assert.Equal(t, entity.SubscriptionStatusPending, NormalizeStatus("something_new"))
}

func TestDecodeList(t *testing.T) {
	items, err := DecodeList([]byte(`{"items":[{"id":"a"},{"id":"b"},3]}`))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = DecodeList([]byte(`[{"id":"a"}]`))
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
