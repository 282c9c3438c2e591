package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
)

// MigrationStatus describes one migration file and whether it is applied.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// MigrateUp applies every pending migration and returns the versions that
// were applied, oldest first. It is a no-op on an up-to-date database.
func (db *DB) MigrateUp(ctx context.Context) ([]int64, error) {
	results, err := db.migrations.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: migrating up: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// MigrateDown rolls back the most recently applied migration and returns
// its version.
func (db *DB) MigrateDown(ctx context.Context) (int64, error) {
	result, err := db.migrations.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: migrating down: %w", err)
	}
	return result.Source.Version, nil
}

// SchemaVersion returns the highest applied migration version (0 when the
// database is empty).
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	v, err := db.migrations.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

// MigrationStatuses lists every known migration in version order.
func (db *DB) MigrationStatuses(ctx context.Context) ([]MigrationStatus, error) {
	statuses, err := db.migrations.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}
