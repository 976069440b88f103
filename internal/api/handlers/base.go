// Package handlers implements the REST API endpoint handlers (C9) for the
// Portal gateway's admin surface: health/stats, a redacted configuration
// snapshot, the hardcoded site table, and the blocklist/allowlist local
// mirror.
//
// @title Portal Gateway Admin API
// @version 1.0
// @description Admin REST API for the Portal content gateway: health, stats, site table and list management.
//
// @contact.name Portal Gateway
// @contact.url https://github.com/walportal/gateway
//
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
//
// @host localhost:8080
// @BasePath /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
package handlers

import (
	"log/slog"
	"time"

	"github.com/walportal/gateway/internal/cache"
	"github.com/walportal/gateway/internal/chainrpc"
	"github.com/walportal/gateway/internal/config"
	"github.com/walportal/gateway/internal/database"
	"github.com/walportal/gateway/internal/server"
)

// Handler contains dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	logger    *slog.Logger
	startTime time.Time

	db           *database.DB
	cache        *cache.Cache
	selector     *chainrpc.Selector
	requestStats *server.RequestStats
}

// New creates a new Handler with the given configuration and storage/cache
// dependencies, any of which may be nil in a deployment that runs without
// the Site Table Store or the response cache.
func New(cfg *config.Config, logger *slog.Logger, db *database.DB, c *cache.Cache, selector *chainrpc.Selector) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
		db:        db,
		cache:     c,
		selector:  selector,
	}
}

// SetRequestStats wires the gateway handler's request-stats collector into
// the admin API so /stats can report it. Nil leaves /stats reporting an
// empty RequestStatsResponse, the same degrade-gracefully behavior as a nil
// db/cache/selector.
func (h *Handler) SetRequestStats(stats *server.RequestStats) {
	h.requestStats = stats
}
