package provider

import (
	"fmt"

	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	dodoProvider "github.com/wekeepgrowing/billing-gateway/internal/infrastructure/provider/dodo"
	stripeProvider "github.com/wekeepgrowing/billing-gateway/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Factory creates subscription providers based on the provider type
type Factory struct {
	config *config.ProviderConfig
	logger *zap.Logger
}

func NewFactory(config *config.ProviderConfig, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetGateway returns the configured provider
func (f *Factory) GetGateway() (provider.Gateway, error) {
	return f.GetGatewayFor(provider.ProviderType(f.config.Type))
}

func (f *Factory) GetGatewayFor(providerType provider.ProviderType) (provider.Gateway, error) {
	if f.config.APIKey == "" {
		return nil, fmt.Errorf("%s api key not configured", providerType)
	}

	switch providerType {
	case provider.ProviderTypeDodo:
		return dodoProvider.NewProvider(f.config.BaseURL, f.config.APIKey, f.config.HTTPTimeout, f.logger), nil
	case provider.ProviderTypeStripe:
		// BaseURL stays empty for the real Stripe API.
		baseURL := f.config.BaseURL
		if baseURL == dodoProvider.TestBaseURL || baseURL == dodoProvider.LiveBaseURL {
			baseURL = ""
		}
		return stripeProvider.NewProvider(f.config.APIKey, baseURL, f.config.ReturnURL, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}
