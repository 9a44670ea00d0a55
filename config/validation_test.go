package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "svc", Version: "v1", Env: EnvDevelopment},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{Connections: map[string]ConnectionConfig{
			"main": {Driver: MySQL, Host: "localhost", Port: 3306},
		}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		category string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name: "unsupported_driver",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Driver: "mssql", Host: "h"}
			},
			field:    "database.connections.main.driver",
			category: "invalid",
		},
		{
			name: "missing_driver",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Host: "h"}
			},
			field:    "database.connections.main.driver",
			category: "missing",
		},
		{
			name: "host_required_for_network_driver",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Driver: PostgreSQL}
			},
			field:    "database.connections.main.host",
			category: "missing",
		},
		{
			name: "connection_string_skips_host",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Driver: PostgreSQL, ConnectionString: "postgres://x"}
			},
		},
		{
			name: "sqlite_needs_database",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Driver: SQLite}
			},
			field:    "database.connections.main.database",
			category: "missing",
		},
		{
			name: "port_out_of_range",
			mutate: func(c *Config) {
				c.Database.Connections["main"] = ConnectionConfig{Driver: MySQL, Host: "h", Port: 70000}
			},
			field:    "database.connections.main.port",
			category: "invalid",
		},
		{
			name:     "bad_environment",
			mutate:   func(c *Config) { c.App.Env = "qa" },
			field:    "app.env",
			category: "invalid",
		},
		{
			name:     "bad_debug_ip",
			mutate:   func(c *Config) { c.Debug.AllowedIPs = []string{"not-an-ip"} },
			field:    "debug.allowedips.0",
			category: "invalid",
		},
		{
			name:     "bad_otlp_protocol",
			mutate:   func(c *Config) { c.Observability.Protocol = "thrift" },
			field:    "observability.protocol",
			category: "invalid",
		},
		{
			name:   "grpc_otlp_protocol",
			mutate: func(c *Config) { c.Observability.Protocol = "grpc" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "expected ConfigError, got %v", err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.category, ce.Category)
		})
	}
}

func TestValidateCollectsAdditionalFailures(t *testing.T) {
	cfg := validConfig()
	cfg.App.Name = ""
	cfg.Log.Level = "chatty"

	err := Validate(cfg)
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "app.name", ce.Field)
	require.Len(t, ce.Details, 1)
	assert.Contains(t, ce.Details[0], "log.level")
}

func TestConfigErrorMessage(t *testing.T) {
	err := NewInvalidFieldError("database.connections.main.driver", `invalid value "mssql"`, []string{"mysql", "sqlite"})
	assert.Equal(t, `config_invalid: database.connections.main.driver invalid value "mssql" must be one of: mysql, sqlite`, err.Error())

	missing := NewMissingFieldError("app.name")
	assert.Equal(t, "config_missing: app.name required set GOTABLES_APP_NAME env var or add app.name to config.yaml", missing.Error())
}
