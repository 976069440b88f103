package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Site is one entry in the hardcoded subdomain table: a subdomain label
// mapped directly to a chain object id, the table nameresolver.Resolver
// consults before base36 self-encoding or the name service.
type Site struct {
	Subdomain string
	ObjectID  string
}

// AddSite adds or updates a hardcoded subdomain -> object id mapping.
func (db *DB) AddSite(ctx context.Context, subdomain, objectID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	query := `
		INSERT INTO sites (subdomain, object_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(subdomain) DO UPDATE SET
			object_id = excluded.object_id,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := db.conn.ExecContext(ctx, query, subdomain, objectID); err != nil {
		return fmt.Errorf("failed to add site %s: %w", subdomain, err)
	}

	return nil
}

// GetSite looks up a single hardcoded subdomain mapping.
func (db *DB) GetSite(ctx context.Context, subdomain string) (Site, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var s Site
	err := db.conn.QueryRowContext(ctx, "SELECT subdomain, object_id FROM sites WHERE subdomain = ?", subdomain).
		Scan(&s.Subdomain, &s.ObjectID)
	if err == sql.ErrNoRows {
		return Site{}, fmt.Errorf("site not found: %s", subdomain)
	}
	if err != nil {
		return Site{}, fmt.Errorf("failed to get site %s: %w", subdomain, err)
	}

	return s, nil
}

// GetAllSites retrieves the full hardcoded subdomain table, used both to
// seed nameresolver.Resolver at startup and by the admin API's listing
// endpoint.
func (db *DB) GetAllSites(ctx context.Context) ([]Site, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT subdomain, object_id FROM sites ORDER BY subdomain")
	if err != nil {
		return nil, fmt.Errorf("failed to query sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		var s Site
		if err := rows.Scan(&s.Subdomain, &s.ObjectID); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sites: %w", err)
	}

	return sites, nil
}

// DeleteSite removes a hardcoded subdomain mapping.
func (db *DB) DeleteSite(ctx context.Context, subdomain string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.ExecContext(ctx, "DELETE FROM sites WHERE subdomain = ?", subdomain)
	if err != nil {
		return fmt.Errorf("failed to delete site %s: %w", subdomain, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("site not found: %s", subdomain)
	}

	return nil
}
