package provider

import (
	"strings"

	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/config"
	"github.com/scantablehq/billing-service/internal/domain/provider"
	flutterwaveProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/flutterwave"
	paystackProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/paystack"
	stripeProvider "github.com/scantablehq/billing-service/internal/infrastructure/provider/stripe"
	"github.com/scantablehq/billing-service/internal/pkg/apperrors"
)

// Registry holds one configured client per payment provider.
type Registry struct {
	providers map[string]provider.PaymentProvider
}

// NewRegistry builds all provider clients from service configuration.
func NewRegistry(cfg *config.ServiceConfig, logger *zap.Logger) *Registry {
	paystack := paystackProvider.NewClient(cfg.Paystack.SecretKey, logger.Named("paystack"))
	if cfg.Paystack.BaseURL != "" {
		paystack = paystackProvider.NewClientWithBaseURL(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, logger.Named("paystack"))
	}

	flutterwave := flutterwaveProvider.NewClient(cfg.Flutterwave.SecretKey, cfg.Flutterwave.WebhookSecret, logger.Named("flutterwave"))
	if cfg.Flutterwave.BaseURL != "" {
		flutterwave = flutterwaveProvider.NewClientWithBaseURL(cfg.Flutterwave.SecretKey, cfg.Flutterwave.WebhookSecret, cfg.Flutterwave.BaseURL, logger.Named("flutterwave"))
	}

	return &Registry{
		providers: map[string]provider.PaymentProvider{
			provider.NamePaystack:    paystack,
			provider.NameFlutterwave: flutterwave,
			provider.NameStripe: stripeProvider.NewClient(
				cfg.Stripe.SecretKey,
				cfg.Stripe.WebhookSecret,
				cfg.Stripe.Prices,
				logger.Named("stripe"),
			),
		},
	}
}

// ForName returns the client for a provider name.
func (r *Registry) ForName(name string) (provider.PaymentProvider, error) {
	p, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, apperrors.Validationf("unsupported payment provider: %s", name)
	}
	return p, nil
}
