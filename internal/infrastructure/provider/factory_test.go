package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/scantablehq/billing-service/internal/config"
	"github.com/scantablehq/billing-service/internal/domain/provider"
)

func TestRegistryForName(t *testing.T) {
	registry := NewRegistry(&config.ServiceConfig{}, zap.NewNop())

	for _, name := range []string{provider.NamePaystack, provider.NameFlutterwave, provider.NameStripe} {
		p, err := registry.ForName(name)
		assert.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	t.Run("case insensitive", func(t *testing.T) {
		p, err := registry.ForName("Paystack")
		assert.NoError(t, err)
		assert.Equal(t, provider.NamePaystack, p.Name())
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := registry.ForName("razorpay")
		assert.Error(t, err)
	})
}
