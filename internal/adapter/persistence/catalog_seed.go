package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SeedServiceTypes upserts service types by name and returns name to id
func SeedServiceTypes(ctx context.Context, db *sql.DB, names []string) (map[string]string, error) {
	query := `
		INSERT INTO service_types (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`

	ids := make(map[string]string, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var id string
		if err := db.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to seed service type %q: %w", name, err)
		}
		ids[name] = id
	}
	return ids, nil
}

// SeedProducts inserts products missing by name and returns name to id.
// Product names are not unique, so an existing row is reused rather than upserted.
func SeedProducts(ctx context.Context, db *sql.DB, names []string) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var id string
		err := db.QueryRowContext(ctx, `SELECT id FROM products WHERE name = $1 ORDER BY created_at LIMIT 1`, name).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			err = db.QueryRowContext(ctx, `INSERT INTO products (name) VALUES ($1) RETURNING id`, name).Scan(&id)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to seed product %q: %w", name, err)
		}
		ids[name] = id
	}
	return ids, nil
}
