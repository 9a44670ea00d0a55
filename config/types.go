package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the root configuration of a go-tables process. Every section is
// optional except app and log, which always carry defaults.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Database      DatabaseConfig      `koanf:"database" json:"database" yaml:"database"`
	Diagnostics   DiagnosticsConfig   `koanf:"diagnostics" json:"diagnostics" yaml:"diagnostics"`
	Events        EventsConfig        `koanf:"events" json:"events" yaml:"events"`
	Debug         DebugConfig         `koanf:"debug" json:"debug" yaml:"debug"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// DatabaseConfig lists the named connections the registry may open and the
// statement logging settings shared by all of them.
type DatabaseConfig struct {
	Connections map[string]ConnectionConfig `koanf:"connections" json:"connections" yaml:"connections" validate:"dive"`
	Query       QueryConfig                 `koanf:"query" json:"query" yaml:"query"`
}

// ConnectionConfig describes one named connection.
type ConnectionConfig struct {
	Driver   string `koanf:"driver" json:"driver" yaml:"driver" validate:"required,oneof=mysql postgresql oracle sqlite"`
	Host     string `koanf:"host" json:"host" yaml:"host"`
	Port     int    `koanf:"port" json:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
	Username string `koanf:"username" json:"username" yaml:"username"`
	Password string `koanf:"password" json:"password" yaml:"password"`
	// Database is the schema name, or the file path for sqlite.
	Database string `koanf:"database" json:"database" yaml:"database"`
	// Charset is applied right after the connection opens when set.
	Charset string `koanf:"charset" json:"charset" yaml:"charset"`
	// ServiceName is the Oracle service; ignored by other drivers.
	ServiceName string `koanf:"servicename" json:"servicename" yaml:"servicename"`

	ConnectionString string `koanf:"connectionstring" json:"connectionstring" yaml:"connectionstring"`

	Pool PoolConfig `koanf:"pool" json:"pool" yaml:"pool"`
}

// PoolConfig holds database/sql pool settings.
type PoolConfig struct {
	MaxConnections  int           `koanf:"maxconnections" json:"maxconnections" yaml:"maxconnections" validate:"min=0"`
	IdleConnections int           `koanf:"idleconnections" json:"idleconnections" yaml:"idleconnections" validate:"min=0"`
	IdleTime        time.Duration `koanf:"idletime" json:"idletime" yaml:"idletime"`
	MaxLifetime     time.Duration `koanf:"maxlifetime" json:"maxlifetime" yaml:"maxlifetime"`
}

// QueryConfig holds settings related to statement logging and slow statement detection.
type QueryConfig struct {
	Slow SlowQueryConfig `koanf:"slow" json:"slow" yaml:"slow"`
	Log  QueryLogConfig  `koanf:"log" json:"log" yaml:"log"`
}

// SlowQueryConfig holds settings for slow statement detection.
type SlowQueryConfig struct {
	Threshold time.Duration `koanf:"threshold" json:"threshold" yaml:"threshold"`
	Enabled   bool          `koanf:"enabled" json:"enabled" yaml:"enabled"`
}

// QueryLogConfig holds settings for statement logging.
type QueryLogConfig struct {
	Parameters bool `koanf:"parameters" json:"parameters" yaml:"parameters"`
	MaxLength  int  `koanf:"maxlength" json:"maxlength" yaml:"maxlength" validate:"min=0"`
}

// DiagnosticsConfig controls the in-process statement log.
type DiagnosticsConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`
	// MaxEntries bounds the log; zero keeps every entry.
	MaxEntries int         `koanf:"maxentries" json:"maxentries" yaml:"maxentries" validate:"min=0"`
	Mongo      MongoConfig `koanf:"mongo" json:"mongo" yaml:"mongo"`
}

// MongoConfig configures the optional diagnostics export to MongoDB.
type MongoConfig struct {
	URI        string        `koanf:"uri" json:"uri" yaml:"uri" validate:"omitempty,uri"`
	Database   string        `koanf:"database" json:"database" yaml:"database"`
	Collection string        `koanf:"collection" json:"collection" yaml:"collection"`
	Timeout    time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// EventsConfig configures forwarding of data events to external systems.
type EventsConfig struct {
	AMQP AMQPConfig `koanf:"amqp" json:"amqp" yaml:"amqp"`
}

// AMQPConfig configures the RabbitMQ publisher.
type AMQPConfig struct {
	URL           string `koanf:"url" json:"url" yaml:"url" validate:"omitempty,url"`
	Exchange      string `koanf:"exchange" json:"exchange" yaml:"exchange"`
	RoutingPrefix string `koanf:"routingprefix" json:"routingprefix" yaml:"routingprefix"`
}

// DebugConfig configures the HTTP debug endpoints.
type DebugConfig struct {
	Enabled     bool     `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Address     string   `koanf:"address" json:"address" yaml:"address"`
	PathPrefix  string   `koanf:"pathprefix" json:"pathprefix" yaml:"pathprefix" validate:"omitempty,startswith=/"`
	AllowedIPs  []string `koanf:"allowedips" json:"allowedips" yaml:"allowedips" validate:"dive,ip|cidr"`
	BearerToken string   `koanf:"bearertoken" json:"bearertoken" yaml:"bearertoken"`
}

// ObservabilityConfig configures OpenTelemetry.
type ObservabilityConfig struct {
	Enabled     bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	ServiceName string `koanf:"servicename" json:"servicename" yaml:"servicename"`
	// Exporter is "stdout" or "otlp".
	Exporter string `koanf:"exporter" json:"exporter" yaml:"exporter" validate:"omitempty,oneof=stdout otlp"`
	Endpoint string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	// Protocol is the otlp transport, "http" (default) or "grpc".
	Protocol string `koanf:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=http grpc"`
	Insecure bool   `koanf:"insecure" json:"insecure" yaml:"insecure"`
}
