package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/config"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/provider/paystack"
)

// Factory creates payment gateways based on the provider type
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// GetGateway returns the gateway for providerType
func (f *Factory) GetGateway(providerType provider.ProviderType) (provider.PaymentGateway, error) {
	switch providerType {
	case provider.ProviderTypePaystack, "":
		return f.createPaystackGateway()
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

func (f *Factory) createPaystackGateway() (provider.PaymentGateway, error) {
	cfg := f.config.Paystack
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("paystack secret key not configured")
	}
	return paystack.NewPaystackProvider(paystack.Config{
		SecretKey: cfg.SecretKey,
		BaseURL:   cfg.BaseURL,
		Currency:  cfg.Currency,
		Timeout:   cfg.Timeout,
	}, f.logger), nil
}
