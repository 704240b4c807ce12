package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithEnvExpansion(t *testing.T) {
	t.Setenv("COFFEESHOP_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Parse([]byte(`
log:
  level: debug
  format: json
server:
  port: ${COFFEESHOP_PORT}
counter:
  barista_url: http://barista:8081
  kitchen_url: http://kitchen:8082
  catalog_url: http://catalog:8083
  classifier:
    provider: openai
    api_key: ${OPENAI_API_KEY}
task_store:
  driver: sqlite3
  dsn: file:tasks.db
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Counter.Classifier.APIKey)
	assert.Equal(t, "http://barista:8081", cfg.Counter.BaristaURL)
	assert.Equal(t, "sqlite3", cfg.TaskStore.Driver)
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("False"))
	assert.Equal(t, 9090, parseValue("9090"))
	assert.Equal(t, 2.5, parseValue("2.5"))
	assert.Equal(t, "sk-test", parseValue("sk-test"))
}

func TestParseEnvDefaultFallback(t *testing.T) {
	os.Unsetenv("COFFEESHOP_MODEL")

	cfg, err := Parse([]byte(`
counter:
  classifier:
    model: ${COFFEESHOP_MODEL:-gpt-4o-mini}
`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Counter.Classifier.Model)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "http://localhost:8080", cfg.Server.PublicURL())
	assert.Equal(t, 10000, cfg.Counter.MaxOrderChars)
	assert.Equal(t, "memory", cfg.TaskStore.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad_log_level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "log.level",
		},
		{
			name:    "bad_port",
			mutate:  func(c *Config) { c.Server.Port = 700000 },
			wantErr: "server.port",
		},
		{
			name:    "auth_enabled_without_jwks",
			mutate:  func(c *Config) { c.Auth.Enabled = true },
			wantErr: "auth.jwks_url",
		},
		{
			name:    "unknown_classifier",
			mutate:  func(c *Config) { c.Counter.Classifier.Provider = "psychic" },
			wantErr: "counter.classifier.provider",
		},
		{
			name:    "bad_prep_delay",
			mutate:  func(c *Config) { c.Fulfillment.PrepDelay = "soon" },
			wantErr: "fulfillment.prep_delay",
		},
		{
			name: "sql_driver_without_dsn",
			mutate: func(c *Config) {
				c.TaskStore.Driver = "postgres"
				c.TaskStore.DSN = ""
			},
			wantErr: "task_store.dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrepDelayDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), FulfillmentConfig{}.PrepDelayDuration())
	assert.Equal(t, 2*time.Second, FulfillmentConfig{PrepDelay: "2s"}.PrepDelayDuration())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coffeeshop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8181\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Server.Port)
}
