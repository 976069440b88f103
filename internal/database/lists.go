package database

import (
	"database/sql"
	"errors"
	"fmt"
)

// List names the local mirror's two partitions, matching blocklist.Checker's
// two consumers (blocklist and allowlist share the same table shape).
const (
	ListBlocklist = "blocklist"
	ListAllowlist = "allowlist"
)

// AddListEntry adds value to the named local list mirror.
func (db *DB) AddListEntry(list, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO list_entries (list, value, added_at) VALUES (?, ?, CURRENT_TIMESTAMP)",
		list, value,
	)
	if err != nil {
		return fmt.Errorf("failed to add %s entry %s: %w", list, value, err)
	}

	return nil
}

// ListEntries retrieves every value currently in the named list mirror.
func (db *DB) ListEntries(list string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query("SELECT value FROM list_entries WHERE list = ? ORDER BY value", list)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s entries: %w", list, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan %s entry: %w", list, err)
		}
		values = append(values, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s entries: %w", list, err)
	}

	return values, nil
}

// IsListMember reports whether value is present in the named list mirror.
func (db *DB) IsListMember(list, value string) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var exists int
	err := db.conn.QueryRow(
		"SELECT 1 FROM list_entries WHERE list = ? AND value = ? LIMIT 1", list, value,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s membership: %w", list, err)
	}

	return true, nil
}

// RemoveListEntry removes value from the named list mirror.
func (db *DB) RemoveListEntry(list, value string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Exec("DELETE FROM list_entries WHERE list = ? AND value = ?", list, value)
	if err != nil {
		return fmt.Errorf("failed to remove %s entry %s: %w", list, value, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s entry not found: %s", list, value)
	}

	return nil
}
