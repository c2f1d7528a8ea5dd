package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/scantablehq/billing-service/internal/pkg/logger"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
}

// LoadConfig reads the YAML config from CONFIG_PATH and then layers secret
// overrides from the environment on top, so deployments never have to write
// provider keys into the file.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/billing.yaml"
	}

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Service.JWTSecret, "JWT_SECRET")
	overrideString(&c.Service.EncryptionKey, "BILLING_ENCRYPTION_KEY")
	overrideString(&c.Service.Paystack.SecretKey, "PAYSTACK_SECRET_KEY")
	overrideString(&c.Service.Flutterwave.SecretKey, "FLUTTERWAVE_SECRET_KEY")
	overrideString(&c.Service.Flutterwave.WebhookSecret, "FLUTTERWAVE_WEBHOOK_HASH")
	overrideString(&c.Service.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	overrideString(&c.Service.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")

	if v := os.Getenv("PAID_TRIAL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			c.Service.PaidTrialDays = days
		}
	}
}

func overrideString(dst *string, envName string) {
	if v := os.Getenv(envName); v != "" {
		*dst = v
	}
}
