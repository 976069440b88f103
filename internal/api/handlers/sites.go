package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/walportal/gateway/internal/api/models"
)

// ListSites godoc
// @Summary List hardcoded sites
// @Description Returns every subdomain -> object id mapping in the site table
// @Tags sites
// @Produce json
// @Success 200 {array} models.SiteResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /sites [get]
func (h *Handler) ListSites(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "site table unavailable"})
		return
	}

	sites, err := h.db.GetAllSites(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list sites", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list sites"})
		return
	}

	resp := make([]models.SiteResponse, 0, len(sites))
	for _, s := range sites {
		resp = append(resp, models.SiteResponse{Subdomain: s.Subdomain, ObjectID: s.ObjectID})
	}
	c.JSON(http.StatusOK, resp)
}

// AddSite godoc
// @Summary Add or update a site mapping
// @Description Maps a subdomain to a chain object id
// @Tags sites
// @Accept json
// @Produce json
// @Param site body models.SiteRequest true "Site mapping"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /sites [post]
func (h *Handler) AddSite(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "site table unavailable"})
		return
	}

	var req models.SiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Subdomain == "" || req.ObjectID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "subdomain and object_id are required"})
		return
	}

	if err := h.db.AddSite(c.Request.Context(), req.Subdomain, req.ObjectID); err != nil {
		h.logger.Error("failed to add site", "subdomain", req.Subdomain, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to add site"})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// DeleteSite godoc
// @Summary Remove a site mapping
// @Tags sites
// @Produce json
// @Param subdomain path string true "Subdomain"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /sites/{subdomain} [delete]
func (h *Handler) DeleteSite(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "site table unavailable"})
		return
	}

	subdomain := c.Param("subdomain")
	if err := h.db.DeleteSite(c.Request.Context(), subdomain); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("failed to delete site", "subdomain", subdomain, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to delete site"})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}
