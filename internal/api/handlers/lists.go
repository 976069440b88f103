package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/walportal/gateway/internal/api/models"
	"github.com/walportal/gateway/internal/database"
)

func listNameFromParam(c *gin.Context) (string, bool) {
	switch c.Param("list") {
	case "blocklist":
		return database.ListBlocklist, true
	case "allowlist":
		return database.ListAllowlist, true
	default:
		return "", false
	}
}

// GetList godoc
// @Summary List blocklist or allowlist entries
// @Tags lists
// @Produce json
// @Param list path string true "blocklist or allowlist"
// @Success 200 {object} models.ListEntriesResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /lists/{list} [get]
func (h *Handler) GetList(c *gin.Context) {
	list, ok := listNameFromParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown list"})
		return
	}
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "list store unavailable"})
		return
	}

	members, err := h.db.ListEntries(list)
	if err != nil {
		h.logger.Error("failed to list entries", "list", list, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, models.ListEntriesResponse{Members: members})
}

// AddListEntry godoc
// @Summary Add a blocklist or allowlist entry
// @Tags lists
// @Accept json
// @Produce json
// @Param list path string true "blocklist or allowlist"
// @Param entry body models.ListEntryRequest true "Entry"
// @Success 200 {object} models.StatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /lists/{list} [post]
func (h *Handler) AddListEntry(c *gin.Context) {
	list, ok := listNameFromParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown list"})
		return
	}
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "list store unavailable"})
		return
	}

	var req models.ListEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Value == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "value is required"})
		return
	}

	if err := h.db.AddListEntry(list, req.Value); err != nil {
		h.logger.Error("failed to add list entry", "list", list, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to add entry"})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// RemoveListEntry godoc
// @Summary Remove a blocklist or allowlist entry
// @Tags lists
// @Produce json
// @Param list path string true "blocklist or allowlist"
// @Param value path string true "Entry value"
// @Success 200 {object} models.StatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /lists/{list}/{value} [delete]
func (h *Handler) RemoveListEntry(c *gin.Context) {
	list, ok := listNameFromParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown list"})
		return
	}
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "list store unavailable"})
		return
	}

	value := c.Param("value")
	if err := h.db.RemoveListEntry(list, value); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
			return
		}
		h.logger.Error("failed to remove list entry", "list", list, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to remove entry"})
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// ExportList godoc
// @Summary Export a list in managed-store polling shape
// @Description Returns the list in the {version, members} shape blocklist.ManagedChecker polls, so this admin API can back a second gateway instance's managed blocklist/allowlist.
// @Tags lists
// @Produce json
// @Param list path string true "blocklist or allowlist"
// @Success 200 {object} models.ExportedListResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /lists/{list}/export [get]
func (h *Handler) ExportList(c *gin.Context) {
	list, ok := listNameFromParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown list"})
		return
	}
	if h.db == nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "list store unavailable"})
		return
	}

	members, err := h.db.ListEntries(list)
	if err != nil {
		h.logger.Error("failed to export list", "list", list, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to export list"})
		return
	}
	version, err := h.db.GetVersion()
	if err != nil {
		h.logger.Error("failed to read config version", "error", err)
		version = 0
	}
	c.JSON(http.StatusOK, models.ExportedListResponse{Version: version, Members: members})
}
