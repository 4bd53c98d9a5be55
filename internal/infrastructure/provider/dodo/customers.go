package dodo

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
)

// SearchCustomersByEmail
// GET /customers?email=
func (p *Provider) SearchCustomersByEmail(ctx context.Context, email string) ([]entity.Customer, error) {
	body, err := p.do(ctx, http.MethodGet, "/customers", url.Values{"email": {email}}, nil, "")
	if err != nil {
		return nil, err
	}

	items, err := mapper.DecodeList(body)
	if err != nil {
		return nil, decodeError("customer list", err)
	}

	customers := make([]entity.Customer, 0, len(items))
	for _, item := range items {
		customer := mapper.CustomerFromPayload(item)
		// The filter is advisory on some API versions.
		if customer.ExternalID != "" && equalFoldEmail(customer.Email, email) {
			customers = append(customers, customer)
		}
	}
	return customers, nil
}

// CreateCustomer
// POST /customers
func (p *Provider) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (*entity.Customer, error) {
	payload := map[string]interface{}{
		"email": req.Email,
		"name":  req.Name,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	body, err := p.do(ctx, http.MethodPost, "/customers", nil, payload, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}

	raw, err := mapper.Decode(body)
	if err != nil {
		return nil, decodeError("customer", err)
	}
	customer := mapper.CustomerFromPayload(raw)
	if customer.ExternalID == "" {
		return nil, decodeError("customer", errMissingID)
	}
	return &customer, nil
}

// UpdateCustomerName
// PATCH /customers/{id}
func (p *Provider) UpdateCustomerName(ctx context.Context, req *provider.UpdateCustomerRequest) error {
	_, err := p.do(ctx, http.MethodPatch, "/customers/"+url.PathEscape(req.CustomerID), nil,
		map[string]string{"name": req.Name}, req.IdempotencyKey)
	return err
}

func equalFoldEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
