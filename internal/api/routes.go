package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/walportal/gateway/internal/api/handlers"
	"github.com/walportal/gateway/internal/api/middleware"
	"github.com/walportal/gateway/internal/config"

	_ "github.com/walportal/gateway/internal/api/docs" // swagger docs
)

// RegisterRoutes wires the admin API's handlers onto r under /api/v1:
// health/stats, a redacted config snapshot, the hardcoded site table, and
// the blocklist/allowlist local mirror (including an export shape a peer
// gateway's managed blocklist backend can poll).
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, cfg *config.Config) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")

	// Optional API key protection.
	if cfg != nil && cfg.API.APIKey != "" {
		api.Use(middleware.RequireAPIKey(cfg.API.APIKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)

	api.GET("/config", h.GetConfig)
	api.PUT("/config", h.PutConfig)
	api.POST("/config/reload", h.ReloadConfig)

	api.GET("/sites", h.ListSites)
	api.POST("/sites", h.AddSite)
	api.DELETE("/sites/:subdomain", h.DeleteSite)

	api.GET("/lists/:list", h.GetList)
	api.POST("/lists/:list", h.AddListEntry)
	api.DELETE("/lists/:list/:value", h.RemoveListEntry)
	api.GET("/lists/:list/export", h.ExportList)
}
