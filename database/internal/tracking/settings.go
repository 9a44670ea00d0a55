// Package tracking logs, traces and measures every statement sent through a session.
package tracking

import (
	"time"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/logger"
)

const (
	// DefaultSlowQueryThreshold defines the default threshold for slow statement detection
	DefaultSlowQueryThreshold = 200 * time.Millisecond
	// DefaultMaxQueryLength defines the default maximum statement length for logging
	DefaultMaxQueryLength = 1000
)

// Settings holds the statement logging configuration.
type Settings struct {
	slowQueryThreshold time.Duration
	slowQueryEnabled   bool
	maxQueryLength     int
	logQueryParameters bool
}

// Context groups what every tracked statement needs to know about its connection.
type Context struct {
	Logger     logger.Logger
	Vendor     string
	Connection string
	Settings   Settings
}

// NewSettings creates Settings from cfg. A nil cfg or non-positive values fall back
// to the defaults.
func NewSettings(cfg *config.QueryConfig) Settings {
	settings := Settings{
		slowQueryThreshold: DefaultSlowQueryThreshold,
		slowQueryEnabled:   true,
		maxQueryLength:     DefaultMaxQueryLength,
	}
	if cfg == nil {
		return settings
	}

	if cfg.Slow.Threshold > 0 {
		settings.slowQueryThreshold = cfg.Slow.Threshold
	}
	settings.slowQueryEnabled = cfg.Slow.Enabled
	if cfg.Log.MaxLength > 0 {
		settings.maxQueryLength = cfg.Log.MaxLength
	}
	settings.logQueryParameters = cfg.Log.Parameters
	return settings
}

// SlowQueryThreshold returns the threshold for slow statement detection
func (s Settings) SlowQueryThreshold() time.Duration { return s.slowQueryThreshold }

// SlowQueryEnabled reports whether slow statements are logged at warn level
func (s Settings) SlowQueryEnabled() bool { return s.slowQueryEnabled }

// MaxQueryLength returns the maximum statement length for logging
func (s Settings) MaxQueryLength() int { return s.maxQueryLength }

// LogQueryParameters returns whether bind arguments are logged
func (s Settings) LogQueryParameters() bool { return s.logQueryParameters }
