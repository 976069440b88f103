// Package api provides the admin REST API for the Portal gateway.
// It exposes endpoints for health checks, runtime statistics, a redacted
// configuration snapshot, hardcoded site table management, and
// blocklist/allowlist control via a Gin-based HTTP server.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/walportal/gateway/internal/api/handlers"
	"github.com/walportal/gateway/internal/api/middleware"
	"github.com/walportal/gateway/internal/cache"
	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/config"
	"github.com/walportal/gateway/internal/database"
	"github.com/walportal/gateway/internal/server"
)

// Server is the admin REST API server. It runs alongside the content
// gateway's own listener, bound to a separate address (api.host/api.port)
// so it can be kept off the public network.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	engine     *gin.Engine
	handler    *handlers.Handler
	httpServer *http.Server
}

// New builds the admin API server. db, c, and selector may be nil without
// a panic: with a nil db the site-table and list endpoints answer 500, and
// with a nil c /stats reports zero cache figures.
func New(cfg *config.Config, logger *slog.Logger, db *database.DB, c *cache.Cache, selector *chainrpc.Selector) *Server {
	if cfg == nil {
		panic("api.New: cfg is nil")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.SlogRequestLogger(logger))

	h := handlers.New(cfg, logger, db, c, selector)
	RegisterRoutes(engine, h, cfg)

	addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{cfg: cfg, logger: logger, engine: engine, handler: h, httpServer: httpServer}
}

// SetRequestStats wires the gateway's request-stats collector into the
// admin API's /stats endpoint. Called once at startup after both the
// gateway handler and the admin server have been built.
func (s *Server) SetRequestStats(stats *server.RequestStats) {
	s.handler.SetRequestStats(stats)
}

func (s *Server) Addr() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.Addr
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
