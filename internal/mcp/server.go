// File: internal/mcp/server.go
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/webnav-mcp/internal/config"
)

const (
	defaultShutdownGrace = 10 * time.Second
	apiTimeout           = 5 * time.Minute
)

// Server exposes the navigator over MCP (stdio or HTTP) and the JSON API.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	mcp      *sdk.Server
	handlers *Handlers
}

// NewServer registers every tool against nav.
func NewServer(cfg config.ServerConfig, nav Navigator, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mcp")
	return &Server{
		cfg:      cfg,
		logger:   logger,
		mcp:      NewMCPServer(cfg.Name, version, nav),
		handlers: NewHandlers(logger, nav),
	}
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *sdk.Server { return s.mcp }

// Handler builds the HTTP routes: streamable MCP at /mcp, legacy SSE at
// /sse, plus the health check and command API.
func (s *Server) Handler() http.Handler {
	getServer := func(*http.Request) *sdk.Server { return s.mcp }

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handlers.HandleHealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(s.cfg.RateLimit, s.cfg.Burst))

		streamable := sdk.NewStreamableHTTPHandler(getServer, nil)
		r.Handle("/mcp", streamable)
		r.Handle("/mcp/*", streamable)
		sse := sdk.NewSSEHandler(getServer, nil)
		r.Handle("/sse", sse)
		r.Handle("/sse/*", sse)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(apiTimeout))
			s.handlers.RegisterRoutes(r)
		})
	})
	return r
}

// Serve runs the configured transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	switch s.cfg.Transport {
	case config.TransportStdio:
		return s.ServeStdio(ctx)
	case config.TransportHTTP, config.TransportSSE:
		ln, err := net.Listen("tcp", s.cfg.Addr())
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
		}
		return s.ServeListener(ctx, ln)
	}
	return fmt.Errorf("unsupported transport %q", s.cfg.Transport)
}

// ServeStdio speaks MCP over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.logger.Info("MCP server listening on stdio.")
	err := s.mcp.Run(ctx, &sdk.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// ServeListener serves HTTP on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP server listening.",
			zap.String("address", ln.Addr().String()),
			zap.String("transport", s.cfg.Transport),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		grace := s.cfg.ShutdownGrace
		if grace <= 0 {
			grace = defaultShutdownGrace
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		s.logger.Info("Shutting down HTTP server.")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Open event streams do not drain on their own.
			s.logger.Warn("Graceful shutdown incomplete; closing connections.", zap.Error(err))
			_ = srv.Close()
		}
		return nil
	})
	return g.Wait()
}
