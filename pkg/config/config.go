// Package config defines the YAML configuration shared by all coffeeshop
// services. One file configures the whole shop; each service reads the
// sections it needs.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration document.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`

	Counter     CounterConfig     `yaml:"counter"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment"`
	TaskStore   TaskStoreConfig   `yaml:"task_store"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is one of json, text.
	Format string `yaml:"format"`
}

// ServerConfig holds the HTTP listener settings for the running service.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// BaseURL is the externally reachable URL advertised on the agent
	// card. Defaults to http://<host>:<port>.
	BaseURL string `yaml:"base_url"`
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PublicURL returns the advertised base URL.
func (s ServerConfig) PublicURL() string {
	if s.BaseURL != "" {
		return strings.TrimSuffix(s.BaseURL, "/")
	}
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// AuthConfig configures inbound token validation and outbound token
// acquisition against the identity provider.
type AuthConfig struct {
	// Enabled turns bearer-token enforcement on for inbound requests.
	Enabled bool `yaml:"enabled"`

	// JWKSURL is the identity provider's key set endpoint.
	JWKSURL string `yaml:"jwks_url"`

	// Issuer is the expected iss claim. Optional.
	Issuer string `yaml:"issuer"`

	// Audience is the expected aud claim. Optional.
	Audience string `yaml:"audience"`

	// Client configures outbound service-to-service credentials.
	Client ClientCredentialsConfig `yaml:"client"`
}

// ClientCredentialsConfig selects how outbound bearer tokens are acquired.
// When TokenURL is set the OAuth2 client credentials flow is used;
// otherwise StaticToken is used as-is.
type ClientCredentialsConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
	StaticToken  string   `yaml:"static_token"`
}

// CounterConfig configures the counter agent: where to find the
// fulfillment agents, the product catalog, and the classifier.
type CounterConfig struct {
	// BaristaURL is the base URL of the barista agent.
	BaristaURL string `yaml:"barista_url"`

	// KitchenURL is the base URL of the kitchen agent.
	KitchenURL string `yaml:"kitchen_url"`

	// CatalogURL is the base URL of the product catalog tool server.
	CatalogURL string `yaml:"catalog_url"`

	// MaxOrderChars bounds the accepted order text length.
	MaxOrderChars int `yaml:"max_order_chars"`

	Classifier ClassifierConfig `yaml:"classifier"`
}

// ClassifierConfig selects the order classification backend.
type ClassifierConfig struct {
	// Provider is "openai" or "stub".
	Provider string `yaml:"provider"`

	// Model names the chat model used by the openai provider.
	Model string `yaml:"model"`

	// APIKey authenticates to the model host. Supports ${VAR} expansion.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the model host endpoint. Optional.
	BaseURL string `yaml:"base_url"`
}

// FulfillmentConfig applies to the barista and kitchen agents.
type FulfillmentConfig struct {
	// PrepDelay holds each accepted order in the working state for this
	// long before completing, e.g. "2s". Empty means no delay.
	PrepDelay string `yaml:"prep_delay"`
}

// PrepDelayDuration parses PrepDelay. Validate has already checked it.
func (f FulfillmentConfig) PrepDelayDuration() time.Duration {
	if f.PrepDelay == "" {
		return 0
	}
	d, err := time.ParseDuration(f.PrepDelay)
	if err != nil {
		return 0
	}
	return d
}

// TaskStoreConfig selects where task state is persisted.
type TaskStoreConfig struct {
	// Driver is one of memory, sqlite3, postgres, mysql.
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`
}

// SetDefaults fills unset fields with working defaults.
func (c *Config) SetDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Counter.MaxOrderChars == 0 {
		c.Counter.MaxOrderChars = 10000
	}
	if c.Counter.Classifier.Provider == "" {
		c.Counter.Classifier.Provider = "openai"
	}
	if c.Counter.Classifier.Model == "" {
		c.Counter.Classifier.Model = "gpt-4o-mini"
	}
	if c.TaskStore.Driver == "" {
		c.TaskStore.Driver = "memory"
	}
}

// Validate checks for configuration the services cannot run with.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d out of range", c.Server.Port)
	}

	if c.Auth.Enabled && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth.jwks_url: required when auth is enabled")
	}

	switch c.Counter.Classifier.Provider {
	case "openai", "stub":
	default:
		return fmt.Errorf("counter.classifier.provider: unknown provider %q", c.Counter.Classifier.Provider)
	}

	if c.Fulfillment.PrepDelay != "" {
		if _, err := time.ParseDuration(c.Fulfillment.PrepDelay); err != nil {
			return fmt.Errorf("fulfillment.prep_delay: %w", err)
		}
	}

	switch c.TaskStore.Driver {
	case "memory":
	case "sqlite3", "postgres", "mysql":
		if c.TaskStore.DSN == "" {
			return fmt.Errorf("task_store.dsn: required for driver %q", c.TaskStore.Driver)
		}
	default:
		return fmt.Errorf("task_store.driver: unknown driver %q", c.TaskStore.Driver)
	}

	return nil
}
