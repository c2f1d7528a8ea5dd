package config

type ServiceConfig struct {
	Name          string `yaml:"name"`
	Environment   string `yaml:"environment"`
	ClientURL     string `yaml:"client_url"`
	JWTSecret     string `yaml:"jwt_secret"`
	EncryptionKey string `yaml:"encryption_key"` // 64 hex chars, AES-256-GCM
	PaidTrialDays int    `yaml:"paid_trial_days"`

	Paystack    ProviderConfig `yaml:"paystack"`
	Flutterwave ProviderConfig `yaml:"flutterwave"`
	Stripe      StripeConfig   `yaml:"stripe"`
}

type ProviderConfig struct {
	SecretKey     string `yaml:"secret_key"`
	PublicKey     string `yaml:"public_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	// Price IDs keyed "<plan>_<interval>", e.g. "pro_monthly".
	Prices map[string]string `yaml:"prices"`
}
