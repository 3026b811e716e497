// Package sqlstore implements the activity store over database/sql.
// It runs against SQLite (modernc.org/sqlite, used by the test suite and
// single-user setups) and Postgres (jackc/pgx stdlib driver). Queries are
// written with ? placeholders and rebound to $n form for Postgres.
//
// Only table reads and writes live here. Postgres schema management is
// expected to be external; EnsureSchema covers the SQLite dialect so the
// store is usable out of the box.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/logging"
	"github.com/openaid/aidsync/pkg/store"
)

// Store is a database/sql backed activity store.
type Store struct {
	db       *sql.DB
	driver   string
	postgres bool
	now      func() time.Time
}

// Open connects to the database named by driver and dsn. The caller is
// responsible for registering the driver (blank import of modernc.org/sqlite
// or jackc/pgx/v5/stdlib).
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WrapStore("open", "", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.WrapStore("ping", "", err)
	}
	s := &Store{
		db:       db,
		driver:   driver,
		postgres: driver == "pgx" || strings.Contains(driver, "postgres"),
		now:      func() time.Time { return time.Now().UTC() },
	}
	logging.Debug().Str("driver", driver).Msg("store opened")
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres. SQLite takes the
// query as written.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindExisting matches candidate identifiers against stored activities in
// one query. Matching is exact-string and case-sensitive.
func (s *Store) FindExisting(ctx context.Context, identifiers []string) (map[string]store.ExistingRef, error) {
	existing := make(map[string]store.ExistingRef, len(identifiers))
	if len(identifiers) == 0 {
		return existing, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(identifiers)), ",")
	args := make([]any, len(identifiers))
	for i, id := range identifiers {
		args[i] = id
	}
	query := s.rebind("SELECT iati_identifier, id, last_updated FROM activities WHERE iati_identifier IN (" + placeholders + ")")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("select", "activities", err)
	}
	defer rows.Close()
	for rows.Next() {
		var identifier string
		var ref store.ExistingRef
		var updated string
		if err := rows.Scan(&identifier, &ref.StoredID, &updated); err != nil {
			return nil, errors.WrapStore("scan", "activities", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
			ref.LastUpdated = t
		}
		existing[identifier] = ref
	}
	return existing, rows.Err()
}

// GetActivity loads one activity with all child collections.
func (s *Store) GetActivity(ctx context.Context, storedID int64) (*iati.Activity, error) {
	return s.loadActivity(ctx, "id = ?", strconv.FormatInt(storedID, 10), storedID)
}

// GetByIdentifier loads one activity by IATI identifier.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*iati.Activity, error) {
	return s.loadActivity(ctx, "iati_identifier = ?", identifier, identifier)
}

// WithTx runs fn inside one database transaction, committing on nil and
// rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(store.Tx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore("begin", "", err)
	}
	if err := fn(&sqlTx{store: s, tx: dbTx}); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return errors.WrapStore("commit", "", err)
	}
	return nil
}

func (s *Store) loadActivity(ctx context.Context, where, key string, arg any) (*iati.Activity, error) {
	query := s.rebind(`SELECT id, iati_identifier, default_currency, hierarchy, humanitarian,
		reporting_org_ref, reporting_org_type, reporting_org_narratives,
		title, description, activity_status,
		planned_start, actual_start, planned_end, actual_end
		FROM activities WHERE ` + where)

	a := &iati.Activity{}
	var identifier sql.NullString
	var humanitarian sql.NullInt64
	var reportingNarr, title, description string
	var plannedStart, actualStart, plannedEnd, actualEnd string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&a.StoredID, &identifier, &a.DefaultCurrency, &a.Hierarchy, &humanitarian,
		&a.ReportingOrg.Ref, &a.ReportingOrg.Type, &reportingNarr,
		&title, &description, &a.Status.Code,
		&plannedStart, &actualStart, &plannedEnd, &actualEnd,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("activity", key)
	}
	if err != nil {
		return nil, errors.WrapStore("select", "activities", err)
	}
	a.IATIIdentifier = identifier.String
	a.Humanitarian = nullToBool(humanitarian)
	a.ReportingOrg.Narratives = narrativesFromJSON(reportingNarr)
	a.Title = textFromJSON(title)
	a.Description = textFromJSON(description)
	for _, d := range []iati.ActivityDate{
		{Type: iati.DateTypePlannedStart, ISODate: plannedStart},
		{Type: iati.DateTypeActualStart, ISODate: actualStart},
		{Type: iati.DateTypePlannedEnd, ISODate: plannedEnd},
		{Type: iati.DateTypeActualEnd, ISODate: actualEnd},
	} {
		if d.ISODate != "" {
			a.Dates = append(a.Dates, d)
		}
	}
	if err := s.loadChildren(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// JSON codecs for narrative-backed columns. Empty lists round-trip as "".

func narrativesToJSON(narratives []iati.Narrative) string {
	if len(narratives) == 0 {
		return ""
	}
	data, err := json.Marshal(narratives)
	if err != nil {
		return ""
	}
	return string(data)
}

func narrativesFromJSON(s string) []iati.Narrative {
	if s == "" {
		return nil
	}
	var narratives []iati.Narrative
	if err := json.Unmarshal([]byte(s), &narratives); err != nil {
		return nil
	}
	return narratives
}

func textToJSON(block iati.TextBlock) string {
	return narrativesToJSON(block.Narratives)
}

func textFromJSON(s string) iati.TextBlock {
	return iati.TextBlock{Narratives: narrativesFromJSON(s)}
}

// Nullable column codecs. Absent values are NULL in the database and nil
// pointers in the model, never zero.

// identifierToNull writes an absent identifier as NULL. The UNIQUE
// constraint on iati_identifier treats NULLs as distinct on both
// backends, so any number of identifier-less activities can coexist
// while present identifiers stay unique.
func identifierToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToNull(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return int64(1)
	}
	return int64(0)
}

func nullToBool(n sql.NullInt64) *bool {
	if !n.Valid {
		return nil
	}
	b := n.Int64 != 0
	return &b
}

func amountToNull(a *float64) any {
	if a == nil {
		return nil
	}
	return *a
}

func nullToAmount(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	a := n.Float64
	return &a
}

// scalarColumn maps a reconciler scalar field name to its column write.
// Narrative-backed fields write the full narrative list.
func scalarColumn(name string, imported *iati.Activity) (column string, value any, err error) {
	switch name {
	case "iati_identifier":
		return "iati_identifier", identifierToNull(imported.IATIIdentifier), nil
	case "title":
		return "title", textToJSON(imported.Title), nil
	case "description":
		return "description", textToJSON(imported.Description), nil
	case "reporting_org_ref":
		return "reporting_org_ref", imported.ReportingOrg.Ref, nil
	case "reporting_org_type":
		return "reporting_org_type", imported.ReportingOrg.Type, nil
	case "reporting_org_name":
		return "reporting_org_narratives", narrativesToJSON(imported.ReportingOrg.Narratives), nil
	case "activity_status":
		return "activity_status", imported.Status.Code, nil
	case "default_currency":
		return "default_currency", imported.DefaultCurrency, nil
	case "hierarchy":
		return "hierarchy", imported.Hierarchy, nil
	case "planned_start":
		return "planned_start", imported.DateOfType(iati.DateTypePlannedStart), nil
	case "actual_start":
		return "actual_start", imported.DateOfType(iati.DateTypeActualStart), nil
	case "planned_end":
		return "planned_end", imported.DateOfType(iati.DateTypePlannedEnd), nil
	case "actual_end":
		return "actual_end", imported.DateOfType(iati.DateTypeActualEnd), nil
	case "humanitarian":
		return "humanitarian", boolToNull(imported.Humanitarian), nil
	default:
		return "", nil, errors.NewStoreError("update", "activities", fmt.Errorf("unknown scalar field %q", name))
	}
}
