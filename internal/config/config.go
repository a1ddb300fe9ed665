package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/llm-phish-triage/")
	v.AddConfigPath("$HOME/.llm-phish-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("PHISH_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "bedrock")
	v.SetDefault("llm.requests_per_second", 5.0)
	v.SetDefault("llm.burst", 10)

	// Server defaults
	v.SetDefault("server.gateway_type", "http")
	v.SetDefault("server.listen_address", "0.0.0.0:8080")
	v.SetDefault("server.smtp_listen_address", "0.0.0.0:10025")
	v.SetDefault("server.block_phishing", false)
	v.SetDefault("server.headers.class", "X-Phish-Class")
	v.SetDefault("server.headers.score", "X-Phish-Score")
	v.SetDefault("server.headers.reason", "X-Phish-Reason")

	// Pipeline defaults
	v.SetDefault("pipeline.total_budget", "3s")
	v.SetDefault("pipeline.heuristic_budget", "700ms")

	// Heuristic score weights
	v.SetDefault("weights.auth_fail", 35)
	v.SetDefault("weights.display_name_spoof", 15)
	v.SetDefault("weights.punycode", 10)
	v.SetDefault("weights.reply_to_mismatch", 10)
	v.SetDefault("weights.suspicious_routing", 10)
	v.SetDefault("weights.url_look_alike", 25)
	v.SetDefault("weights.url_ip_literal", 20)
	v.SetDefault("weights.url_shortener", 12)
	v.SetDefault("weights.url_not_allowlisted", 8)
	v.SetDefault("weights.content_signal", 6)
	v.SetDefault("weights.content_signal_cap", 24)

	// Decision policy thresholds
	v.SetDefault("policy.phishing_floor", 70)
	v.SetDefault("policy.safe_ceiling", 30)
	v.SetDefault("policy.fallback_high", 70)
	v.SetDefault("policy.fallback_low", 30)

	// URL analysis defaults
	v.SetDefault("urls.allowlist", []string{
		"google.com", "microsoft.com", "apple.com", "amazon.com",
		"paypal.com", "github.com", "linkedin.com", "dropbox.com",
	})
	v.SetDefault("urls.edit_threshold", 2)
	v.SetDefault("urls.max_urls", 10)

	// Header analysis defaults
	v.SetDefault("headers.max_relay_hops", 8)

	// Account context defaults for the SMTP and CLI gateways; the HTTP
	// gateway receives the context per request instead
	v.SetDefault("account.user_locale", "en")
	v.SetDefault("account.trusted_senders", []string{})
	v.SetDefault("account.owned_domains", []string{})

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Reputation store defaults
	v.SetDefault("reputation.type", "memory")
	v.SetDefault("reputation.enabled", true)
	v.SetDefault("reputation.ttl", "24h")
	v.SetDefault("reputation.cleanup_frequency", "1h")
	v.SetDefault("reputation.sqlite_path", "/data/domain_reputation.db")
	v.SetDefault("reputation.mysql_dsn", "user:password@tcp(localhost:3306)/phish_triage")
	v.SetDefault("reputation.seed_trusted", []string{})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
