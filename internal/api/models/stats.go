package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// CacheStatsResponse contains C7 response cache occupancy and hit/miss
// counters.
type CacheStatsResponse struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// RPCEndpointStatsResponse contains cumulative success/failure counters for
// a single chain RPC endpoint, as recorded in the Site Table Store.
type RPCEndpointStatsResponse struct {
	URL          string `json:"url"`
	SuccessCount int64  `json:"success_count"`
	FailureCount int64  `json:"failure_count"`
}

// RequestStatsResponse contains cumulative gateway request counters broken
// down by response class, plus average request latency.
type RequestStatsResponse struct {
	RequestsTotal uint64  `json:"requests_total"`
	Responses2xx  uint64  `json:"responses_2xx"`
	Responses3xx  uint64  `json:"responses_3xx"`
	Responses404  uint64  `json:"responses_404"`
	Responses5xx  uint64  `json:"responses_5xx"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
}

// ServerStatsResponse contains server runtime statistics.
type ServerStatsResponse struct {
	Uptime        string                     `json:"uptime"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	StartTime     time.Time                  `json:"start_time"`
	CPU           CPUStats                   `json:"cpu"`
	Memory        MemoryStats                `json:"memory"`
	Cache         CacheStatsResponse         `json:"cache"`
	RPCEndpoints  []RPCEndpointStatsResponse `json:"rpc_endpoints"`
	Requests      RequestStatsResponse       `json:"requests"`
}
