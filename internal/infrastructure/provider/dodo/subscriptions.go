package dodo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"go.uber.org/zap"
)

// ListSubscriptions
// GET /subscriptions?customer_id=
func (p *Provider) ListSubscriptions(ctx context.Context, customerID string) ([]entity.Subscription, error) {
	body, err := p.do(ctx, http.MethodGet, "/subscriptions", url.Values{"customer_id": {customerID}}, nil, "")
	if err != nil {
		return nil, err
	}

	items, err := mapper.DecodeList(body)
	if err != nil {
		return nil, decodeError("subscription list", err)
	}

	subs := make([]entity.Subscription, 0, len(items))
	for _, item := range items {
		sub, err := mapper.SubscriptionFromPayload(item)
		if err != nil {
			p.logger.Warn("Skipping unreadable subscription", zap.Error(err))
			continue
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

// GetSubscription
// GET /subscriptions/{id}
func (p *Provider) GetSubscription(ctx context.Context, subscriptionID string) (*entity.Subscription, error) {
	body, err := p.do(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(subscriptionID), nil, nil, "")
	if err != nil {
		return nil, err
	}

	raw, err := mapper.Decode(body)
	if err != nil {
		return nil, decodeError("subscription", err)
	}
	sub, err := mapper.SubscriptionFromPayload(raw)
	if err != nil {
		return nil, decodeError("subscription", err)
	}
	return sub, nil
}

// CancelSubscription
// PATCH /subscriptions/{id}
func (p *Provider) CancelSubscription(ctx context.Context, req *provider.CancelSubscriptionRequest) error {
	payload := map[string]interface{}{"status": "cancelled"}
	if req.AtPeriodEnd {
		payload = map[string]interface{}{"cancel_at_next_billing_date": true}
	}
	_, err := p.do(ctx, http.MethodPatch, "/subscriptions/"+url.PathEscape(req.SubscriptionID), nil, payload, req.IdempotencyKey)
	return err
}

// ChangePlan
// POST /subscriptions/{id}/change-plan
func (p *Provider) ChangePlan(ctx context.Context, req *provider.ChangePlanRequest) error {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	mode := req.ProrationMode
	if mode == "" {
		mode = "prorated_immediately"
	}

	payload := map[string]interface{}{
		"product_id":             req.ProductID,
		"quantity":               quantity,
		"proration_billing_mode": mode,
	}
	_, err := p.do(ctx, http.MethodPost, "/subscriptions/"+url.PathEscape(req.SubscriptionID)+"/change-plan", nil, payload, req.IdempotencyKey)
	return err
}
