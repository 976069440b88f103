package server

import (
	"sync/atomic"
)

// RequestStats collects gateway request statistics.
// All methods are safe for concurrent use.
type RequestStats struct {
	requestsTotal  atomic.Uint64
	responses2xx   atomic.Uint64
	responses3xx   atomic.Uint64
	responses404   atomic.Uint64
	responses5xx   atomic.Uint64
	latencyTotalNs atomic.Uint64
}

// NewRequestStats creates a new request statistics collector.
func NewRequestStats() *RequestStats {
	return &RequestStats{}
}

// RecordRequest records one completed request by its final HTTP status.
func (s *RequestStats) RecordRequest(status int) {
	s.requestsTotal.Add(1)
	switch {
	case status == 404:
		s.responses404.Add(1)
	case status >= 500:
		s.responses5xx.Add(1)
	case status >= 300 && status < 400:
		s.responses3xx.Add(1)
	case status >= 200 && status < 300:
		s.responses2xx.Add(1)
	}
}

// RecordLatency records request latency in nanoseconds.
func (s *RequestStats) RecordLatency(ns int64) {
	if ns > 0 {
		s.latencyTotalNs.Add(uint64(ns))
	}
}

// RequestStatsSnapshot is a point-in-time snapshot of gateway request
// statistics.
type RequestStatsSnapshot struct {
	RequestsTotal uint64
	Responses2xx  uint64
	Responses3xx  uint64
	Responses404  uint64
	Responses5xx  uint64
	AvgLatencyMs  float64
}

// Snapshot returns the current statistics.
func (s *RequestStats) Snapshot() RequestStatsSnapshot {
	total := s.requestsTotal.Load()
	latencyNs := s.latencyTotalNs.Load()

	avgLatencyMs := 0.0
	if total > 0 {
		avgLatencyMs = float64(latencyNs) / float64(total) / 1e6
	}

	return RequestStatsSnapshot{
		RequestsTotal: total,
		Responses2xx:  s.responses2xx.Load(),
		Responses3xx:  s.responses3xx.Load(),
		Responses404:  s.responses404.Load(),
		Responses5xx:  s.responses5xx.Load(),
		AvgLatencyMs:  avgLatencyMs,
	}
}
