package dodo

import (
	"context"
	"errors"
	"net/http"

	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
)

var errMissingID = errors.New("response has no identifier")

// CreateCheckoutSession
// POST /checkouts
func (p *Provider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutRequest) (*entity.CheckoutSession, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	payload := map[string]interface{}{
		"product_cart": []map[string]interface{}{
			{"product_id": req.ProductID, "quantity": quantity},
		},
		"customer":   map[string]string{"customer_id": req.CustomerID},
		"return_url": req.ReturnURL,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	body, err := p.do(ctx, http.MethodPost, "/checkouts", nil, payload, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	raw, err := mapper.Decode(body)
	if err != nil {
		return nil, decodeError("checkout", err)
	}
	session, err := mapper.CheckoutSessionFromPayload(raw)
	if err != nil {
		return nil, decodeError("checkout", err)
	}
	if session.Metadata == nil {
		session.Metadata = req.Metadata
	}
	return session, nil
}
