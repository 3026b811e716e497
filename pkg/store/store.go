// Package store defines the typed read/write interface the import core
// consumes for the relational activity store. Schema migration, connection
// pooling, and authentication live outside this interface; the core only
// reads and writes rows per entity table.
//
// Two implementations ship with the module: memory (tests, previews) and
// sqlstore (database/sql over SQLite or Postgres).
package store

import (
	"context"
	"time"

	"github.com/openaid/aidsync/pkg/iati"
)

// ExistingRef describes a stored activity matched by identifier during
// the conflict pre-check.
type ExistingRef struct {
	StoredID    int64
	LastUpdated time.Time
}

// Store is the read side plus transaction entry point. FindExisting is
// one batched lookup: the Conflict Detector passes every candidate
// identifier at once, never one query per candidate.
type Store interface {
	// FindExisting returns a match for each identifier that is already
	// stored. Matching is exact-string and case-sensitive.
	FindExisting(ctx context.Context, identifiers []string) (map[string]ExistingRef, error)

	// GetActivity loads one activity with all child collections.
	GetActivity(ctx context.Context, storedID int64) (*iati.Activity, error)

	// GetByIdentifier loads one activity by IATI identifier.
	GetByIdentifier(ctx context.Context, identifier string) (*iati.Activity, error)

	// WithTx runs fn inside one local transaction. Every child-collection
	// write for one activity happens in one such transaction: the
	// activity commits or rolls back as a unit, independent of the rest
	// of the batch.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// Close releases the underlying connection.
	Close() error
}

// Tx is the per-activity write scope. Children reference parents created
// earlier in the same transaction, so callers insert in dependency order:
// activity, then flat children, then results with their indicators and
// periods.
type Tx interface {
	// InsertActivity writes the activity's scalar row and returns its
	// stored id. Inserting an identifier that already exists fails with
	// a ConflictError; the store's uniqueness constraint is the final
	// authority over the pre-check.
	InsertActivity(ctx context.Context, activity *iati.Activity) (int64, error)

	// UpdateActivityScalars overwrites the named scalar fields on one
	// stored activity with the imported activity's values. Field names
	// follow the reconciler's scalar names; narrative-backed fields
	// (title, description, reporting_org_name) write the full narrative
	// list, not just the display value. Unknown field names error.
	UpdateActivityScalars(ctx context.Context, storedID int64, imported *iati.Activity, fields []string) error

	InsertSector(ctx context.Context, storedID int64, sector iati.Sector) error
	DeleteSector(ctx context.Context, storedID int64, vocabulary, code string) error

	InsertBudget(ctx context.Context, storedID int64, budget iati.Budget) error
	DeleteBudget(ctx context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error

	InsertPlannedDisbursement(ctx context.Context, storedID int64, pd iati.PlannedDisbursement) error
	DeletePlannedDisbursement(ctx context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error

	InsertTransaction(ctx context.Context, storedID int64, tx iati.Transaction) error
	DeleteTransaction(ctx context.Context, storedID int64, typeCode, date string, amount *float64, currency string) error

	// InsertResult writes the result row only and returns its id; use
	// InsertIndicator and InsertIndicatorPeriod for the nested levels.
	InsertResult(ctx context.Context, storedID int64, result iati.Result) (int64, error)
	InsertIndicator(ctx context.Context, resultID int64, indicator iati.Indicator) (int64, error)
	InsertIndicatorPeriod(ctx context.Context, indicatorID int64, period iati.IndicatorPeriod) error

	InsertContact(ctx context.Context, storedID int64, contact iati.Contact) error
	InsertRelatedActivity(ctx context.Context, storedID int64, related iati.RelatedActivity) error
	DeleteRelatedActivity(ctx context.Context, storedID int64, ref string) error
	InsertLocation(ctx context.Context, storedID int64, location iati.Location) error
	InsertHumanitarianScope(ctx context.Context, storedID int64, scope iati.HumanitarianScope) error
	InsertCountryBudgetItems(ctx context.Context, storedID int64, items iati.CountryBudgetItems) error
}

// ScalarFieldNames is the closed set of activity scalar field names
// shared by the reconciler and UpdateActivityScalars, so diff names and
// write names can never drift apart.
var ScalarFieldNames = []string{
	"iati_identifier",
	"title",
	"description",
	"reporting_org_ref",
	"reporting_org_type",
	"reporting_org_name",
	"activity_status",
	"default_currency",
	"hierarchy",
	"planned_start",
	"actual_start",
	"planned_end",
	"actual_end",
	"humanitarian",
}

// IsScalarField reports whether name is a known activity scalar field.
func IsScalarField(name string) bool {
	for _, f := range ScalarFieldNames {
		if f == name {
			return true
		}
	}
	return false
}
