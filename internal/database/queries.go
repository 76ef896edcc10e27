package database

import (
	"context"
	"fmt"
	"time"
)

type AppliedMigration struct {
	Name      string
	AppliedAt time.Time
}

// Applied returns the recorded migrations keyed by name.
func (m *Migrator) Applied(ctx context.Context) (map[string]AppliedMigration, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT name, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]AppliedMigration)
	for rows.Next() {
		var a AppliedMigration
		if err := rows.Scan(&a.Name, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied[a.Name] = a
	}
	return applied, rows.Err()
}

// Pending keeps the names that have not been applied, preserving order.
func Pending(names []string, applied map[string]AppliedMigration) []string {
	pending := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := applied[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending
}
