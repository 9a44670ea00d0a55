// Package config loads the typed configuration of a go-tables process from
// defaults, YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys.
// GOTABLES_DATABASE_CONNECTIONS_MAIN_HOST becomes database.connections.main.host.
const EnvPrefix = "GOTABLES_"

// Driver names accepted in database.connections.<name>.driver.
const (
	MySQL      = "mysql"
	PostgreSQL = "postgresql"
	Oracle     = "oracle"
	SQLite     = "sqlite"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultMaxQueryLength     = 1000
	defaultMaxConnections     = 10
	defaultIdleConnections    = 2
	defaultIdleTime           = 5 * time.Minute
	defaultMaxLifetime        = 30 * time.Minute
)

// Load loads configuration with priority, lowest first:
// defaults, config.yaml, config.<app.env>.yaml, GOTABLES_ environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadOptionalFile(k, "config.yaml"); err != nil {
		return nil, err
	}

	if env := k.String("app.env"); env != "" {
		if err := loadOptionalFile(k, fmt.Sprintf("config.%s.yaml", env)); err != nil {
			return nil, err
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return finish(k)
}

// LoadFromYAML loads configuration from defaults, the given YAML document and the
// environment, in that order.
func LoadFromYAML(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if err := loadEnv(k); err != nil {
		return nil, err
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	applyConnectionDefaults(&cfg.Database)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadOptionalFile(k *koanf.Koanf, path string) error {
	err := k.Load(file.Provider(path), yaml.Parser())
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

func loadEnv(k *koanf.Koanf) error {
	provider := envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
			key = strings.ReplaceAll(key, "_", ".")
			if strings.Contains(value, ",") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":    "go-tables",
		"app.version": "v1.0.0",
		"app.env":     EnvDevelopment,

		"log.level":  "info",
		"log.pretty": false,

		// Connections have no defaults; the registry only knows what is configured.
		"database.query.slow.threshold": defaultSlowQueryThreshold.String(),
		"database.query.slow.enabled":   true,
		"database.query.log.parameters": false,
		"database.query.log.maxlength":  defaultMaxQueryLength,

		"diagnostics.enabled":          true,
		"diagnostics.maxentries":       0,
		"diagnostics.mongo.collection": "statements",
		"diagnostics.mongo.timeout":    "5s",

		"events.amqp.exchange":      "tables.events",
		"events.amqp.routingprefix": "tables",

		"debug.enabled":    false,
		"debug.address":    "127.0.0.1:6060",
		"debug.pathprefix": "/_debug",
		"debug.allowedips": []string{"127.0.0.1", "::1"},

		"observability.enabled":     false,
		"observability.servicename": "go-tables",
		"observability.exporter":    "stdout",
		"observability.protocol":    "http",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}

// DefaultPort returns the conventional server port for a driver, or 0.
func DefaultPort(driver string) int {
	switch driver {
	case MySQL:
		return 3306
	case PostgreSQL:
		return 5432
	case Oracle:
		return 1521
	default:
		return 0
	}
}

func applyConnectionDefaults(db *DatabaseConfig) {
	for name, cc := range db.Connections {
		cc.Driver = strings.ToLower(strings.TrimSpace(cc.Driver))
		if cc.Port == 0 && cc.ConnectionString == "" {
			cc.Port = DefaultPort(cc.Driver)
		}
		if cc.Pool.MaxConnections == 0 {
			cc.Pool.MaxConnections = defaultMaxConnections
		}
		if cc.Pool.IdleConnections == 0 {
			cc.Pool.IdleConnections = defaultIdleConnections
		}
		if cc.Pool.IdleTime == 0 {
			cc.Pool.IdleTime = defaultIdleTime
		}
		if cc.Pool.MaxLifetime == 0 {
			cc.Pool.MaxLifetime = defaultMaxLifetime
		}
		db.Connections[name] = cc
	}
}

// Connection returns the configuration of a named connection.
func (c *Config) Connection(name string) (*ConnectionConfig, bool) {
	cc, ok := c.Database.Connections[name]
	if !ok {
		return nil, false
	}
	return &cc, true
}

// String returns a custom configuration value by dotted key, or def when unset.
func (c *Config) String(key, def string) string {
	if c.k == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.String(key)
}

// Int returns a custom configuration value by dotted key, or def when unset.
func (c *Config) Int(key string, def int) int {
	if c.k == nil || !c.k.Exists(key) {
		return def
	}
	return c.k.Int(key)
}
