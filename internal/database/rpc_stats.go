package database

import (
	"context"
	"fmt"
)

// RPCEndpointStats is one configured chain RPC endpoint's observed health,
// surfaced by the admin API's /stats endpoint.
type RPCEndpointStats struct {
	URL          string
	SuccessCount int64
	FailureCount int64
	LastUsedAt   *string
	LastError    *string
}

// RecordRPCSuccess increments url's success counter, inserting a fresh row
// if this is the first call seen for it.
func (db *DB) RecordRPCSuccess(ctx context.Context, url string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO rpc_endpoint_stats (url, success_count, last_used_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(url) DO UPDATE SET
			success_count = success_count + 1,
			last_used_at = CURRENT_TIMESTAMP
	`, url)
	if err != nil {
		return fmt.Errorf("failed to record rpc success for %s: %w", url, err)
	}

	return nil
}

// RecordRPCFailure increments url's failure counter and records errMsg.
func (db *DB) RecordRPCFailure(ctx context.Context, url, errMsg string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO rpc_endpoint_stats (url, failure_count, last_used_at, last_error)
		VALUES (?, 1, CURRENT_TIMESTAMP, ?)
		ON CONFLICT(url) DO UPDATE SET
			failure_count = failure_count + 1,
			last_used_at = CURRENT_TIMESTAMP,
			last_error = excluded.last_error
	`, url, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record rpc failure for %s: %w", url, err)
	}

	return nil
}

// GetRPCEndpointStats retrieves health stats for every endpoint seen so far.
func (db *DB) GetRPCEndpointStats(ctx context.Context) ([]RPCEndpointStats, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT url, success_count, failure_count, last_used_at, last_error
		FROM rpc_endpoint_stats
		ORDER BY url
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rpc endpoint stats: %w", err)
	}
	defer rows.Close()

	var stats []RPCEndpointStats
	for rows.Next() {
		var s RPCEndpointStats
		if err := rows.Scan(&s.URL, &s.SuccessCount, &s.FailureCount, &s.LastUsedAt, &s.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan rpc endpoint stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rpc endpoint stats: %w", err)
	}

	return stats, nil
}
