package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/walportal/gateway/internal/api/models"
)

// Health godoc
// @Summary Health check
// @Description Returns server health status
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Server statistics
// @Description Returns runtime statistics including system CPU/memory usage, cache occupancy, and chain RPC endpoint health
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	memStats := models.MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := models.CPUStats{
		NumCPU: runtime.NumCPU(),
	}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		Cache:         h.getCacheStats(),
		RPCEndpoints:  h.getRPCEndpointStats(c.Request.Context()),
		Requests:      h.getRequestStats(),
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getRequestStats() models.RequestStatsResponse {
	if h.requestStats == nil {
		return models.RequestStatsResponse{}
	}
	snap := h.requestStats.Snapshot()
	return models.RequestStatsResponse{
		RequestsTotal: snap.RequestsTotal,
		Responses2xx:  snap.Responses2xx,
		Responses3xx:  snap.Responses3xx,
		Responses404:  snap.Responses404,
		Responses5xx:  snap.Responses5xx,
		AvgLatencyMs:  snap.AvgLatencyMs,
	}
}

func (h *Handler) getCacheStats() models.CacheStatsResponse {
	if h.cache == nil {
		return models.CacheStatsResponse{}
	}
	hits, misses := h.cache.Stats()
	return models.CacheStatsResponse{
		Entries: h.cache.Len(),
		Hits:    hits,
		Misses:  misses,
	}
}

func (h *Handler) getRPCEndpointStats(ctx context.Context) []models.RPCEndpointStatsResponse {
	if h.db == nil {
		return nil
	}
	stats, err := h.db.GetRPCEndpointStats(ctx)
	if err != nil {
		h.logger.Error("failed to load rpc endpoint stats", "error", err)
		return nil
	}

	out := make([]models.RPCEndpointStatsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, models.RPCEndpointStatsResponse{
			URL:          s.URL,
			SuccessCount: s.SuccessCount,
			FailureCount: s.FailureCount,
		})
	}
	return out
}
