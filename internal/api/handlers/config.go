package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/walportal/gateway/internal/api/models"
)

// GetConfig godoc
// @Summary Get current configuration
// @Description Returns the current gateway configuration (secrets redacted)
// @Tags config
// @Produce json
// @Success 200 {object} models.ConfigResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	if h.cfg == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "config unavailable"})
		return
	}

	resp := models.ConfigResponse{
		Chain: models.ChainConfigResponse{
			Network:              h.cfg.Chain.Network,
			SitePackage:          h.cfg.Chain.SitePackage,
			LandingPageOIDBase36: h.cfg.Chain.LandingPageOIDBase36,
			RPCEndpointCount:     len(h.cfg.Chain.RPCURLs),
			PremiumEndpointCount: len(h.cfg.Chain.PremiumRPCURLs),
			RequestTimeoutMS:     h.cfg.Chain.RequestTimeoutMS,
		},
		Aggregator: models.AggregatorConfigResponse{
			EndpointCount: len(h.cfg.Aggregator.URLs),
			Attempts:      h.cfg.Aggregator.Attempts,
			RetryDelayMS:  h.cfg.Aggregator.RetryDelayMS,
		},
		Domain: models.DomainConfigResponse{
			PortalDomain:           h.cfg.Domain.PortalDomain,
			B36DomainResolution:    h.cfg.Domain.B36DomainResolution,
			BringYourOwnDomain:     h.cfg.Domain.BringYourOwnDomain,
			PortalDomainNameLength: h.cfg.Domain.PortalDomainNameLength,
		},
		Cache: models.CacheConfigResponse{
			TTL:        h.cfg.Cache.TTL,
			MaxEntries: h.cfg.Cache.MaxEntries,
		},
		Blocklist: models.ListConfigResponse{Enabled: h.cfg.Blocklist.Enabled, Backend: h.cfg.Blocklist.Backend},
		Allowlist: models.ListConfigResponse{Enabled: h.cfg.Allowlist.Enabled, Backend: h.cfg.Allowlist.Backend},
		API: models.APIConfigResponse{
			Enabled: h.cfg.API.Enabled,
			Host:    h.cfg.API.Host,
			Port:    h.cfg.API.Port,
		},
	}

	c.JSON(http.StatusOK, resp)
}

// PutConfig godoc
// @Summary Update configuration
// @Description Configuration updates are not implemented: this endpoint always answers 501 and changes nothing
// @Tags config
// @Accept json
// @Produce json
// @Param config body models.ConfigResponse true "Configuration update"
// @Failure 501 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /config [put]
func (h *Handler) PutConfig(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "config updates not yet implemented"})
}

// ReloadConfig godoc
// @Summary Reload configuration
// @Description Hot reload is not implemented: this endpoint always answers 501 and reloads nothing
// @Tags config
// @Produce json
// @Failure 501 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /config/reload [post]
func (h *Handler) ReloadConfig(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, models.ErrorResponse{Error: "config reload not yet implemented"})
}
