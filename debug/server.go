package debug

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/go-tables/config"
	"github.com/gaborage/go-tables/logger"
)

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
)

// Server is a standalone echo server hosting the debug endpoints.
type Server struct {
	echo   *echo.Echo
	cfg    *config.DebugConfig
	logger logger.Logger
}

// NewServer builds the echo instance, installs the middleware chain and
// registers h. serviceName names the server spans.
func NewServer(cfg *config.DebugConfig, serviceName string, h *Handlers, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, _ []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("Panic recovered")
			return err
		},
	}))

	h.Register(e)

	return &Server{echo: e, cfg: cfg, logger: log}
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start listens on the configured address. It blocks until the server stops
// and returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.cfg.Address).
		Msg("Starting debug server...")

	return s.echo.StartServer(&http.Server{
		Addr:         s.cfg.Address,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
