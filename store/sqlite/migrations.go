package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Lattice store (SQLite).
var Migrations = migrate.NewGroup("lattice")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tuples",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lattice_tuples (
    id              TEXT PRIMARY KEY,
    zone_id         TEXT NOT NULL,
    subject_type    TEXT NOT NULL,
    subject_id      TEXT NOT NULL,
    relation        TEXT NOT NULL,
    object_type     TEXT NOT NULL,
    object_id       TEXT NOT NULL,
    expires_at      TEXT,
    created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lattice_tuples_subject ON lattice_tuples (zone_id, subject_type, subject_id, relation);
CREATE INDEX IF NOT EXISTS idx_lattice_tuples_object ON lattice_tuples (zone_id, object_type, object_id, relation);
CREATE INDEX IF NOT EXISTS idx_lattice_tuples_check ON lattice_tuples (zone_id, subject_type, subject_id, relation, object_type, object_id);
CREATE INDEX IF NOT EXISTS idx_lattice_tuples_expires ON lattice_tuples (expires_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lattice_tuples`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_resource_ids",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lattice_resource_ids (
    id              TEXT PRIMARY KEY,
    int_id          INTEGER NOT NULL,
    resource_type   TEXT NOT NULL,
    resource_id     TEXT NOT NULL,
    zone_id         TEXT NOT NULL,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),

    UNIQUE(zone_id, resource_type, resource_id),
    UNIQUE(zone_id, int_id)
);

CREATE INDEX IF NOT EXISTS idx_lattice_resource_ids_type ON lattice_resource_ids (zone_id, resource_type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lattice_resource_ids`)
				return err
			},
		},
	)
}
