package dodo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/wekeepgrowing/billing-gateway/internal/adapter/mapper"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/entity"
)

// ListProducts
// GET /products?recurring=true
func (p *Provider) ListProducts(ctx context.Context) ([]entity.Plan, error) {
	body, err := p.do(ctx, http.MethodGet, "/products", url.Values{"recurring": {"true"}}, nil, "")
	if err != nil {
		return nil, err
	}

	items, err := mapper.DecodeList(body)
	if err != nil {
		return nil, decodeError("product list", err)
	}
	return mapper.PlansFromProducts(items), nil
}
