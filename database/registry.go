package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database/diagnostics"
	"github.com/gaborage/go-tables/database/events"
	"github.com/gaborage/go-tables/database/table"
	"github.com/gaborage/go-tables/database/types"
	"github.com/gaborage/go-tables/logger"
)

// ErrRegistryClosed is returned by a Registry used after Close.
var ErrRegistryClosed = errors.New("registry closed")

// Options configures a Registry. Every field is optional.
type Options struct {
	// Events is shared by every table created through the registry.
	Events *events.Bus
	// Diagnostics receives one entry per executed statement.
	Diagnostics *diagnostics.Log
	// Connector opens native sessions. Defaults to NewSession.
	Connector Connector
}

// Registry owns the named connections of a process. Connections are opened
// explicitly with Open or lazily from configuration on first lookup, and live
// until Close.
type Registry struct {
	cfg       *config.DatabaseConfig
	log       logger.Logger
	bus       *events.Bus
	diag      *diagnostics.Log
	connector Connector

	mu     sync.RWMutex
	conns  map[string]*Connection
	closed bool

	sfg singleflight.Group
}

// NewRegistry creates a registry. cfg may be nil when every connection is opened explicitly.
func NewRegistry(cfg *config.DatabaseConfig, log logger.Logger, opts Options) *Registry {
	if cfg == nil {
		cfg = &config.DatabaseConfig{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Connector == nil {
		opts.Connector = NewSession
	}
	return &Registry{
		cfg:       cfg,
		log:       log,
		bus:       opts.Events,
		diag:      opts.Diagnostics,
		connector: opts.Connector,
		conns:     make(map[string]*Connection),
	}
}

// Events returns the bus shared by the registry's tables, or nil.
func (r *Registry) Events() *events.Bus { return r.bus }

// Diagnostics returns the statement log shared by the registry's tables, or nil.
func (r *Registry) Diagnostics() *diagnostics.Log { return r.diag }

// Open connects name with cfg and registers it, replacing and closing any
// connection already registered under that name. An unsupported driver yields a
// *types.UnsupportedDriverError and leaves the registry unchanged.
func (r *Registry) Open(ctx context.Context, name string, cfg *config.ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, config.NewMissingFieldError("database.connections." + name)
	}
	cc := *cfg
	cc.Driver = strings.ToLower(strings.TrimSpace(cc.Driver))
	if err := ValidateDriver(cc.Driver); err != nil {
		return nil, err
	}
	if cc.Port == 0 && cc.ConnectionString == "" {
		cc.Port = config.DefaultPort(cc.Driver)
	}

	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRegistryClosed
	}

	s, err := r.connector(ctx, &cc, r.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection %q: %w", name, err)
	}

	conn := &Connection{
		name:    name,
		driver:  cc.Driver,
		session: track(s, r.log, name, &r.cfg.Query),
		reg:     r,
		tables:  make(map[string]*table.Table),
	}

	if cc.Charset != "" {
		if err := conn.SetCharset(ctx, cc.Charset); err != nil {
			r.log.Warn().
				Err(err).
				Str("connection", name).
				Str("charset", cc.Charset).
				Msg("Failed to apply configured charset")
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = s.Close()
		return nil, ErrRegistryClosed
	}
	previous := r.conns[name]
	r.conns[name] = conn
	r.mu.Unlock()

	if previous != nil {
		if err := previous.session.Close(); err != nil {
			r.log.Warn().Err(err).Str("connection", name).Msg("Failed to close replaced connection")
		}
	}

	r.log.Info().
		Str("connection", name).
		Str("driver", cc.Driver).
		Msg("Opened database connection")

	return conn, nil
}

// Connection returns the connection registered as name, opening it from
// configuration when it is configured but not yet open. Concurrent first lookups
// of one name share a single open.
func (r *Registry) Connection(ctx context.Context, name string) (*Connection, error) {
	if conn := r.lookup(name); conn != nil {
		return conn, nil
	}

	result, err, _ := r.sfg.Do(name, func() (any, error) {
		if conn := r.lookup(name); conn != nil {
			return conn, nil
		}
		cc, ok := r.cfg.Connections[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrConnectionNotFound, name)
		}
		return r.Open(ctx, name, &cc)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Connection), nil
}

func (r *Registry) lookup(name string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[name]
}

// Table is shorthand for Connection(ctx, connection) followed by Table(name).
func (r *Registry) Table(ctx context.Context, connection, name string) (*table.Table, error) {
	conn, err := r.Connection(ctx, connection)
	if err != nil {
		return nil, err
	}
	return conn.Table(name)
}

// SetCharset switches the character set of an open connection. It reports
// false when the connection is unknown or the change fails.
func (r *Registry) SetCharset(ctx context.Context, name, charset string) bool {
	conn := r.lookup(name)
	if conn == nil {
		return false
	}
	return conn.SetCharset(ctx, charset) == nil
}

// Names returns the names of the open connections, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns per-connection session statistics keyed by connection name.
func (r *Registry) Stats() map[string]any {
	r.mu.RLock()
	conns := make(map[string]*Connection, len(r.conns))
	for name, conn := range r.conns {
		conns[name] = conn
	}
	r.mu.RUnlock()

	stats := make(map[string]any, len(conns))
	for name, conn := range conns {
		s := conn.session.Stats()
		if s == nil {
			s = map[string]any{}
		}
		s["driver"] = conn.driver
		s["tables"] = conn.tableCount()
		stats[name] = s
	}
	return stats
}

// Close closes every connection. The registry cannot be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	conns := r.conns
	r.conns = make(map[string]*Connection)
	r.mu.Unlock()

	var errs []error
	for name, conn := range conns {
		if err := conn.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection %q: %w", name, err))
			continue
		}
		r.log.Info().Str("connection", name).Msg("Closed database connection")
	}
	return errors.Join(errs...)
}

// Connection is one open named connection. Its session is shared by every table
// created from it.
type Connection struct {
	name    string
	driver  string
	session types.Session
	reg     *Registry

	mu     sync.Mutex
	tables map[string]*table.Table
}

// Name returns the registry name of the connection.
func (c *Connection) Name() string { return c.name }

// Driver returns the driver name, lower-cased.
func (c *Connection) Driver() string { return c.driver }

// Session returns the tracked native session.
func (c *Connection) Session() types.Session { return c.session }

// Table returns the cached handle for table name, creating it on first use.
func (c *Connection) Table(name string) (*table.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	t, err := table.New(name, c.session,
		table.WithConnectionName(c.name),
		table.WithEvents(c.reg.bus),
		table.WithDiagnostics(c.reg.diag),
		table.WithLogger(c.reg.log),
	)
	if err != nil {
		return nil, err
	}
	c.tables[name] = t
	return t, nil
}

// SetCharset switches the client character set of the connection.
func (c *Connection) SetCharset(ctx context.Context, charset string) error {
	if err := c.session.SetCharset(ctx, charset); err != nil {
		return err
	}
	c.reg.log.Debug().Str("connection", c.name).Str("charset", charset).Msg("Charset changed")
	return nil
}

// Health pings the connection.
func (c *Connection) Health(ctx context.Context) error {
	return c.session.Health(ctx)
}

func (c *Connection) tableCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}
