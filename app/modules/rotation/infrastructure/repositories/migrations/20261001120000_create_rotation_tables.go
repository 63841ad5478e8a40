package rotationmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// participantTableDDL is shared by players and alliances; the two kinds are
// structurally identical. The partial unique index allows at most one holder.
const participantTableDDL = `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		award_count INTEGER NOT NULL DEFAULT 0 CHECK (award_count >= 0),
		is_current_holder BOOLEAN NOT NULL DEFAULT 0,
		is_excluded BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS ux_%[1]s_single_holder
		ON %[1]s (is_current_holder) WHERE is_current_holder = 1;
`

// assignmentTableDDL uses AUTOINCREMENT so ids are never reused: append order
// is the ledger chronology even after deletions.
const assignmentTableDDL = `
	CREATE TABLE IF NOT EXISTS %[1]s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		participant_id INTEGER NOT NULL REFERENCES %[2]s (id) ON DELETE CASCADE,
		event_id INTEGER NOT NULL REFERENCES events (id) ON DELETE CASCADE,
		assigned_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_participant ON %[1]s (participant_id, id);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_event ON %[1]s (event_id);
`

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, table := range []string{"players", "alliances"} {
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(participantTableDDL, table)); err != nil {
					return fmt.Errorf("failed to create %s table: %w", table, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					description TEXT,
					event_date TIMESTAMP NOT NULL,
					has_mvp BOOLEAN NOT NULL DEFAULT 0,
					has_winner BOOLEAN NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_events_event_date ON events (event_date DESC, id DESC);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}

			ledgers := map[string]string{
				"mvp_assignments":    "players",
				"winner_assignments": "alliances",
			}
			for table, participants := range ledgers {
				if _, err := tx.ExecContext(ctx, fmt.Sprintf(assignmentTableDDL, table, participants)); err != nil {
					return fmt.Errorf("failed to create %s table: %w", table, err)
				}
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS rotation_state (
					kind TEXT PRIMARY KEY,
					version INTEGER NOT NULL DEFAULT 0,
					updated_at TIMESTAMP NOT NULL
				);
				INSERT OR IGNORE INTO rotation_state (kind, version, updated_at)
				VALUES ('mvp', 0, CURRENT_TIMESTAMP), ('winner', 0, CURRENT_TIMESTAMP);
			`); err != nil {
				return fmt.Errorf("failed to create rotation_state table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, table := range []string{"rotation_state", "mvp_assignments", "winner_assignments", "events", "players", "alliances"} {
				if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
					return fmt.Errorf("failed to drop %s table: %w", table, err)
				}
			}
			return nil
		})
	})
}
