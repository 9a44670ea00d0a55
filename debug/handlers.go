// Package debug exposes the statement log and the connection registry over HTTP.
// The endpoints are meant for development: they are guarded by an IP whitelist,
// an optional bearer token and a per-IP rate limit.
package debug

import (
	"crypto/subtle"
	"net/http"
	"net/netip"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/database"
	"github.com/gaborage/go-tables/database/diagnostics"
	"github.com/gaborage/go-tables/logger"
)

const (
	// RateLimit is the sustained number of debug requests allowed per client IP and second.
	RateLimit = 20

	rateLimitExpiry = 5 * time.Minute
)

// Response is the envelope of every debug endpoint.
type Response struct {
	Timestamp time.Time `json:"timestamp"`
	Duration  string    `json:"duration"`
	Data      any       `json:"data"`
	Error     string    `json:"error,omitempty"`
}

// ConnectionInfo describes one open connection.
type ConnectionInfo struct {
	Name    string         `json:"name"`
	Healthy *bool          `json:"healthy,omitempty"`
	Error   string         `json:"error,omitempty"`
	Stats   map[string]any `json:"stats"`
}

// Handlers serves the debug endpoints.
type Handlers struct {
	config *config.DebugConfig
	reg    *database.Registry
	diag   *diagnostics.Log
	logger logger.Logger
}

// NewHandlers creates the debug handlers. reg and diag may be nil; the matching
// endpoints then report empty data.
func NewHandlers(cfg *config.DebugConfig, reg *database.Registry, diag *diagnostics.Log, log logger.Logger) *Handlers {
	return &Handlers{config: cfg, reg: reg, diag: diag, logger: log}
}

// Register mounts the endpoints under the configured prefix when enabled.
func (h *Handlers) Register(e *echo.Echo) {
	if !h.config.Enabled {
		h.logger.Info().Msg("Debug endpoints disabled")
		return
	}

	group := e.Group(h.prefix())
	group.Use(h.ipWhitelistMiddleware())
	if h.config.BearerToken != "" {
		group.Use(h.authMiddleware())
	}
	group.Use(rateLimitMiddleware(RateLimit))

	group.GET("/queries", h.handleQueries)
	group.DELETE("/queries", h.handleResetQueries)
	group.GET("/connections", h.handleConnections)
	group.GET("/info", h.handleInfo)

	h.logger.Info().
		Str("prefix", h.prefix()).
		Msgf("Debug endpoints registered (allowed_ips=%d, auth_enabled=%t)",
			len(h.config.AllowedIPs), h.config.BearerToken != "")
}

func (h *Handlers) prefix() string {
	p := strings.TrimRight(h.config.PathPrefix, "/")
	if p == "" {
		return "/_debug"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// IPWhitelist is a set of allowed addresses and networks.
type IPWhitelist struct {
	prefixes []netip.Prefix
}

// NewIPWhitelist parses entries as single addresses or CIDR networks. Invalid
// entries are logged and skipped.
func NewIPWhitelist(entries []string, log logger.Logger) *IPWhitelist {
	w := &IPWhitelist{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				log.Warn().Str("ip", entry).Err(err).Msg("Invalid IP in whitelist")
				continue
			}
			w.prefixes = append(w.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			log.Warn().Str("ip", entry).Err(err).Msg("Invalid IP in whitelist")
			continue
		}
		addr = addr.Unmap()
		w.prefixes = append(w.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return w
}

// Contains reports whether addr is allowed.
func (w *IPWhitelist) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range w.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ipWhitelistMiddleware restricts access to allowed IPs. An empty list allows everyone.
func (h *Handlers) ipWhitelistMiddleware() echo.MiddlewareFunc {
	if len(h.config.AllowedIPs) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	whitelist := NewIPWhitelist(h.config.AllowedIPs, h.logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientIP := c.RealIP()
			addr, err := netip.ParseAddr(clientIP)
			if err != nil {
				return h.accessDenied(clientIP, "invalid IP")
			}
			if !whitelist.Contains(addr) {
				return h.accessDenied(clientIP, "IP not whitelisted")
			}
			return next(c)
		}
	}
}

func (h *Handlers) accessDenied(clientIP, reason string) error {
	h.logger.Warn().Str("client_ip", clientIP).Msgf("Debug endpoint access denied: %s", reason)
	return echo.NewHTTPError(http.StatusForbidden, "Access denied")
}

// authMiddleware provides bearer token authentication
func (h *Handlers) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "Bearer token required")
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.config.BearerToken)) != 1 {
				h.logger.Warn().Str("client_ip", c.RealIP()).Msg("Debug endpoint access denied: invalid token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			return next(c)
		}
	}
}

// rateLimitMiddleware limits requests per client IP.
func rateLimitMiddleware(perSecond int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(perSecond),
			Burst:     perSecond * 2,
			ExpiresIn: rateLimitExpiry,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
		},
	})
}

func newResponse(start time.Time, data any, err error) *Response {
	resp := &Response{
		Timestamp: start,
		Duration:  time.Since(start).String(),
		Data:      data,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// handleQueries returns the statement log, oldest first. ?errors=true keeps
// failed statements only; ?limit=n keeps the n most recent.
func (h *Handlers) handleQueries(c echo.Context) error {
	start := time.Now()

	entries := h.diag.List()
	if entries == nil {
		entries = []diagnostics.Entry{}
	}

	if onlyErrors, _ := strconv.ParseBool(c.QueryParam("errors")); onlyErrors {
		failed := entries[:0]
		for _, e := range entries {
			if e.Error != "" {
				failed = append(failed, e)
			}
		}
		entries = failed
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}

	return c.JSON(http.StatusOK, newResponse(start, map[string]any{
		"count":   len(entries),
		"entries": entries,
	}, nil))
}

// handleResetQueries empties the statement log.
func (h *Handlers) handleResetQueries(c echo.Context) error {
	start := time.Now()
	cleared := h.diag.Len()
	h.diag.Reset()
	h.logger.Info().Int("cleared", cleared).Msg("Statement log cleared")
	return c.JSON(http.StatusOK, newResponse(start, map[string]any{"cleared": cleared}, nil))
}

// handleConnections lists the open connections. ?health=true pings each one.
func (h *Handlers) handleConnections(c echo.Context) error {
	start := time.Now()
	conns := []ConnectionInfo{}
	if h.reg == nil {
		return c.JSON(http.StatusOK, newResponse(start, conns, nil))
	}

	checkHealth, _ := strconv.ParseBool(c.QueryParam("health"))
	stats := h.reg.Stats()
	ctx := c.Request().Context()

	for _, name := range h.reg.Names() {
		info := ConnectionInfo{Name: name}
		if s, ok := stats[name].(map[string]any); ok {
			info.Stats = s
		}
		if checkHealth {
			healthy := true
			conn, err := h.reg.Connection(ctx, name)
			if err == nil {
				err = conn.Health(ctx)
			}
			if err != nil {
				healthy = false
				info.Error = err.Error()
			}
			info.Healthy = &healthy
		}
		conns = append(conns, info)
	}

	return c.JSON(http.StatusOK, newResponse(start, conns, nil))
}

// handleInfo returns basic process information
func (h *Handlers) handleInfo(c echo.Context) error {
	start := time.Now()

	info := map[string]any{
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
		"statements": h.diag.Len(),
		"drivers":    database.SupportedDrivers(),
		"debug_config": map[string]any{
			"path_prefix":  h.prefix(),
			"auth_enabled": h.config.BearerToken != "",
			"allowed_ips":  len(h.config.AllowedIPs),
		},
	}
	if h.reg != nil {
		info["connections"] = h.reg.Names()
	}

	return c.JSON(http.StatusOK, newResponse(start, info, nil))
}
