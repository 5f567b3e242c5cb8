package postgres

import (
	"context"

	"minerva/pkg/errors"
)

// Schema statements are idempotent so the engine can bootstrap a fresh
// database on startup without external migration tooling.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS research_profiles (
		id UUID PRIMARY KEY,
		financial_literacy TEXT NOT NULL,
		preferences JSONB NOT NULL DEFAULT '{}',
		display_name TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS researches (
		id UUID PRIMARY KEY,
		stock_symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		profile_id UUID,
		status TEXT NOT NULL,
		workflow_type TEXT NOT NULL,
		parameters JSONB NOT NULL DEFAULT '{}',
		results JSONB,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_researches_status_created ON researches (status, created_at)`,
}

// Migrate creates the research tables if they do not exist yet
func Migrate(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "apply schema statement")
		}
	}
	return nil
}
