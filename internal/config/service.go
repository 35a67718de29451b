package config

import "time"

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	// FrontendURL is where checkout finalize redirects the browser.
	FrontendURL string `mapstructure:"frontend_url"`
	// BaseURL is this service's public address, used for provider callbacks.
	BaseURL string `mapstructure:"base_url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type PaystackConfig struct {
	SecretKey     string        `mapstructure:"secret_key"`
	BaseURL       string        `mapstructure:"base_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Currency      string        `mapstructure:"currency"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type DocumentsConfig struct {
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	MaxChars       int           `mapstructure:"max_chars"`
	LeaseTTL       time.Duration `mapstructure:"lease_ttl"`
}

type BillingConfig struct {
	PlansFile string `mapstructure:"plans_file"`
	// AllowCustomGroups keeps groups a user holds outside any plan.
	AllowCustomGroups       bool          `mapstructure:"allow_custom_groups"`
	ProvisioningStaleAfter  time.Duration `mapstructure:"provisioning_stale_after"`
	CancellationMaxAttempts int           `mapstructure:"cancellation_max_attempts"`
	RefreshLeaseTTL         time.Duration `mapstructure:"refresh_lease_ttl"`
}
