package sqlstore

import (
	"context"

	"github.com/openaid/aidsync/pkg/errors"
)

// schemaSQLite creates every table the store writes. Narrative lists are
// stored as JSON text columns; absent numerics, booleans, and identifiers
// are NULL. An absent identifier must never be stored as '': UNIQUE treats
// every NULL as distinct, so identifier-less activities never collide.
// This is the SQLite dialect only; Postgres deployments manage their
// schema with external migrations.
var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		iati_identifier TEXT UNIQUE,
		default_currency TEXT NOT NULL DEFAULT '',
		hierarchy TEXT NOT NULL DEFAULT '',
		humanitarian INTEGER,
		reporting_org_ref TEXT NOT NULL DEFAULT '',
		reporting_org_type TEXT NOT NULL DEFAULT '',
		reporting_org_narratives TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		activity_status TEXT NOT NULL DEFAULT '',
		planned_start TEXT NOT NULL DEFAULT '',
		actual_start TEXT NOT NULL DEFAULT '',
		planned_end TEXT NOT NULL DEFAULT '',
		actual_end TEXT NOT NULL DEFAULT '',
		last_updated TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sectors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		vocabulary TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		percentage TEXT NOT NULL DEFAULT '',
		narratives TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS country_budget_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		vocabulary TEXT NOT NULL DEFAULT '',
		items TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS humanitarian_scopes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		type TEXT NOT NULL DEFAULT '',
		vocabulary TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		narratives TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS budgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		period_start TEXT NOT NULL DEFAULT '',
		period_end TEXT NOT NULL DEFAULT '',
		amount REAL,
		raw_value TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		value_date TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS planned_disbursements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		type TEXT NOT NULL DEFAULT '',
		period_start TEXT NOT NULL DEFAULT '',
		period_end TEXT NOT NULL DEFAULT '',
		amount REAL,
		raw_value TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		value_date TEXT NOT NULL DEFAULT '',
		provider_ref TEXT NOT NULL DEFAULT '',
		provider_type TEXT NOT NULL DEFAULT '',
		provider_activity_id TEXT NOT NULL DEFAULT '',
		provider_narratives TEXT NOT NULL DEFAULT '',
		receiver_ref TEXT NOT NULL DEFAULT '',
		receiver_type TEXT NOT NULL DEFAULT '',
		receiver_activity_id TEXT NOT NULL DEFAULT '',
		receiver_narratives TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		ref TEXT NOT NULL DEFAULT '',
		humanitarian INTEGER,
		type TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL DEFAULT '',
		amount REAL,
		raw_value TEXT NOT NULL DEFAULT '',
		currency TEXT NOT NULL DEFAULT '',
		value_date TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		provider_ref TEXT NOT NULL DEFAULT '',
		provider_type TEXT NOT NULL DEFAULT '',
		provider_activity_id TEXT NOT NULL DEFAULT '',
		provider_narratives TEXT NOT NULL DEFAULT '',
		receiver_ref TEXT NOT NULL DEFAULT '',
		receiver_type TEXT NOT NULL DEFAULT '',
		receiver_activity_id TEXT NOT NULL DEFAULT '',
		receiver_narratives TEXT NOT NULL DEFAULT '',
		disbursement_channel TEXT NOT NULL DEFAULT '',
		flow_type TEXT NOT NULL DEFAULT '',
		finance_type TEXT NOT NULL DEFAULT '',
		aid_type_code TEXT NOT NULL DEFAULT '',
		aid_type_vocabulary TEXT NOT NULL DEFAULT '',
		tied_status TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		type TEXT NOT NULL DEFAULT '',
		aggregation_status INTEGER,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS result_indicators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		result_id INTEGER NOT NULL REFERENCES results(id) ON DELETE CASCADE,
		measure TEXT NOT NULL DEFAULT '',
		ascending INTEGER,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		baseline_year TEXT NOT NULL DEFAULT '',
		baseline_value TEXT NOT NULL DEFAULT '',
		baseline_comment TEXT NOT NULL DEFAULT '',
		has_baseline INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS indicator_periods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		indicator_id INTEGER NOT NULL REFERENCES result_indicators(id) ON DELETE CASCADE,
		period_start TEXT NOT NULL DEFAULT '',
		period_end TEXT NOT NULL DEFAULT '',
		target_value TEXT NOT NULL DEFAULT '',
		actual_value TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS contacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		type TEXT NOT NULL DEFAULT '',
		organisation TEXT NOT NULL DEFAULT '',
		person_name TEXT NOT NULL DEFAULT '',
		telephone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS related_activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		ref TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS locations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		activity_id INTEGER NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		ref TEXT NOT NULL DEFAULT '',
		reach TEXT NOT NULL DEFAULT '',
		gazetteer_vocabulary TEXT NOT NULL DEFAULT '',
		gazetteer_code TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		srs_name TEXT NOT NULL DEFAULT '',
		pos TEXT NOT NULL DEFAULT '',
		exactness TEXT NOT NULL DEFAULT '',
		class TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_identifier ON activities(iati_identifier)`,
}

// EnsureSchema creates all tables when they do not exist yet. SQLite only.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.postgres {
		return errors.NewStoreError("migrate", "", errors.New("postgres schema is managed externally"))
	}
	for _, stmt := range schemaSQLite {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.WrapStore("migrate", "", err)
		}
	}
	return nil
}
