package database

import (
	"context"
	"fmt"
)

// SeedRPCEndpoints ensures a zero-stat row exists for each of the
// deployment's configured chain RPC endpoints, so a freshly started
// gateway's /stats endpoint shows every endpoint immediately rather than
// only ones that have already answered a call.
func (db *DB) SeedRPCEndpoints(ctx context.Context, urls []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO rpc_endpoint_stats (url, success_count, failure_count)
		VALUES (?, 0, 0)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare rpc endpoint insert: %w", err)
	}
	defer stmt.Close()

	for _, url := range urls {
		if _, err := stmt.ExecContext(ctx, url); err != nil {
			return fmt.Errorf("failed to seed rpc endpoint %s: %w", url, err)
		}
	}

	return tx.Commit()
}

// IsInitialized reports whether the site table has any entries, i.e.
// whether an operator has configured any hardcoded subdomain mappings yet.
func (db *DB) IsInitialized() (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM sites").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check site count: %w", err)
	}

	return count > 0, nil
}
