package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/codeabuu/simplifydocs/pkg/config"
	"github.com/codeabuu/simplifydocs/pkg/logger"
)

type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       logger.Config   `mapstructure:"log"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Paystack  PaystackConfig  `mapstructure:"paystack"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Documents DocumentsConfig `mapstructure:"documents"`
	Billing   BillingConfig   `mapstructure:"billing"`
}

// defaults apply when neither the config file nor the environment sets a key.
var defaults = map[string]interface{}{
	"service.name":                      "simplifydocs-billing",
	"service.environment":               "development",
	"service.frontend_url":              "http://localhost:3000",
	"service.base_url":                  "http://localhost:8080",
	"server.http.host":                  "0.0.0.0",
	"server.http.port":                  8080,
	"server.grpc.host":                  "0.0.0.0",
	"server.grpc.port":                  9090,
	"database.host":                     "localhost",
	"database.port":                     5432,
	"database.name":                     "simplifydocs",
	"database.user":                     "postgres",
	"database.password":                 "",
	"database.ssl_mode":                 "disable",
	"database.max_open_conns":           20,
	"database.max_idle_conns":           5,
	"database.conn_max_lifetime":        "30m",
	"database.conn_max_idle_time":       "5m",
	"database.slow_threshold":           "200ms",
	"redis.addr":                        "",
	"redis.password":                    "",
	"redis.db":                          0,
	"log.level":                         "info",
	"log.format":                        "json",
	"log.output":                        "stdout",
	"jwt.secret":                        "",
	"paystack.secret_key":               "",
	"paystack.base_url":                 "https://api.paystack.co",
	"paystack.webhook_secret":           "",
	"paystack.currency":                 "USD",
	"paystack.timeout":                  "10s",
	"openai.api_key":                    "",
	"openai.base_url":                   "",
	"openai.model":                      "gpt-3.5-turbo",
	"openai.max_tokens":                 1024,
	"documents.max_upload_bytes":        10 << 20,
	"documents.max_chars":               12000,
	"documents.lease_ttl":               "5m",
	"billing.plans_file":                "configs/plans.yaml",
	"billing.allow_custom_groups":       true,
	"billing.provisioning_stale_after":  "10m",
	"billing.cancellation_max_attempts": 5,
	"billing.refresh_lease_ttl":         "30m",
}

// LoadConfig reads configs/billing.yaml (or CONFIG_PATH) with BILLING_*
// environment overrides.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := pkgconfig.Load(pkgconfig.Options{
		Name:      "billing",
		EnvPrefix: "BILLING",
		Defaults:  defaults,
	}, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the services cannot start without.
func (c *Config) Validate() error {
	if c.Paystack.SecretKey == "" {
		return fmt.Errorf("paystack.secret_key is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Paystack.Timeout <= 0 {
		c.Paystack.Timeout = 10 * time.Second
	}
	return nil
}
