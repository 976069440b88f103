package server

import "testing"

func TestRequestStatsRecordRequest(t *testing.T) {
	s := NewRequestStats()
	s.RecordRequest(200)
	s.RecordRequest(302)
	s.RecordRequest(404)
	s.RecordRequest(500)
	s.RecordRequest(503)

	snap := s.Snapshot()
	if snap.RequestsTotal != 5 {
		t.Fatalf("got total %d", snap.RequestsTotal)
	}
	if snap.Responses2xx != 1 || snap.Responses3xx != 1 || snap.Responses404 != 1 || snap.Responses5xx != 2 {
		t.Fatalf("got %+v", snap)
	}
}

func TestRequestStatsAvgLatency(t *testing.T) {
	s := NewRequestStats()
	s.RecordRequest(200)
	s.RecordLatency(1_000_000)
	s.RecordRequest(200)
	s.RecordLatency(3_000_000)

	snap := s.Snapshot()
	if got := snap.AvgLatencyMs; got != 2.0 {
		t.Fatalf("got avg latency %v", got)
	}
}

func TestRequestStatsNoRequestsZeroAvg(t *testing.T) {
	s := NewRequestStats()
	if got := s.Snapshot().AvgLatencyMs; got != 0 {
		t.Fatalf("got %v", got)
	}
}
