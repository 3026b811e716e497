package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
)

// sqlTx is the per-activity write scope over one database transaction.
type sqlTx struct {
	store *Store
	tx    *sql.Tx
}

// isUniqueViolation recognises a duplicate-key failure from either
// backend: SQLSTATE 23505 for Postgres, the constraint message for SQLite.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (t *sqlTx) exec(ctx context.Context, table, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.store.rebind(query), args...); err != nil {
		return errors.WrapStore("insert", table, err)
	}
	return nil
}

// insertReturningID inserts one row and reads back its generated id.
// RETURNING works on both SQLite and Postgres; LastInsertId does not
// exist on the pgx driver.
func (t *sqlTx) insertReturningID(ctx context.Context, table, query string, args ...any) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.store.rebind(query+" RETURNING id"), args...).Scan(&id)
	if err != nil {
		return 0, errors.WrapStore("insert", table, err)
	}
	return id, nil
}

func (t *sqlTx) InsertActivity(ctx context.Context, activity *iati.Activity) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, t.store.rebind(`INSERT INTO activities (
		iati_identifier, default_currency, hierarchy, humanitarian,
		reporting_org_ref, reporting_org_type, reporting_org_narratives,
		title, description, activity_status,
		planned_start, actual_start, planned_end, actual_end, last_updated
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		identifierToNull(activity.IATIIdentifier), activity.DefaultCurrency, activity.Hierarchy, boolToNull(activity.Humanitarian),
		activity.ReportingOrg.Ref, activity.ReportingOrg.Type, narrativesToJSON(activity.ReportingOrg.Narratives),
		textToJSON(activity.Title), textToJSON(activity.Description), activity.Status.Code,
		activity.DateOfType(iati.DateTypePlannedStart), activity.DateOfType(iati.DateTypeActualStart),
		activity.DateOfType(iati.DateTypePlannedEnd), activity.DateOfType(iati.DateTypeActualEnd),
		t.store.now().Format(time.RFC3339Nano),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, errors.NewConflictError(activity.IATIIdentifier, err)
		}
		return 0, errors.WrapStore("insert", "activities", err)
	}
	return id, nil
}

func (t *sqlTx) UpdateActivityScalars(ctx context.Context, storedID int64, imported *iati.Activity, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	for _, name := range fields {
		column, value, err := scalarColumn(name, imported)
		if err != nil {
			return err
		}
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	sets = append(sets, "last_updated = ?")
	args = append(args, t.store.now().Format(time.RFC3339Nano), storedID)

	query := "UPDATE activities SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := t.tx.ExecContext(ctx, t.store.rebind(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.NewConflictError(imported.IATIIdentifier, err)
		}
		return errors.WrapStore("update", "activities", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("activity", strconv.FormatInt(storedID, 10))
	}
	return nil
}

func (t *sqlTx) InsertSector(ctx context.Context, storedID int64, sector iati.Sector) error {
	return t.exec(ctx, "sectors",
		"INSERT INTO sectors (activity_id, vocabulary, code, percentage, narratives) VALUES (?, ?, ?, ?, ?)",
		storedID, sector.Vocabulary, sector.Code, sector.Percentage, narrativesToJSON(sector.Narratives))
}

func (t *sqlTx) DeleteSector(ctx context.Context, storedID int64, vocabulary, code string) error {
	return t.deleteFirst(ctx, "sectors",
		"activity_id = ? AND vocabulary = ? AND code = ?",
		storedID, vocabulary, code)
}

func (t *sqlTx) InsertBudget(ctx context.Context, storedID int64, budget iati.Budget) error {
	return t.exec(ctx, "budgets",
		`INSERT INTO budgets (activity_id, type, status, period_start, period_end, amount, raw_value, currency, value_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storedID, budget.Type, budget.Status, budget.PeriodStart.ISODate, budget.PeriodEnd.ISODate,
		amountToNull(budget.Value.Amount), budget.Value.Raw, budget.Value.Currency, budget.Value.ValueDate)
}

func (t *sqlTx) DeleteBudget(ctx context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error {
	return t.deleteFirst(ctx, "budgets",
		"activity_id = ? AND period_start = ? AND period_end = ? AND "+amountMatch,
		storedID, periodStart, periodEnd, amountToNull(amount), amountToNull(amount))
}

func (t *sqlTx) InsertPlannedDisbursement(ctx context.Context, storedID int64, pd iati.PlannedDisbursement) error {
	return t.exec(ctx, "planned_disbursements",
		`INSERT INTO planned_disbursements (activity_id, type, period_start, period_end,
			amount, raw_value, currency, value_date,
			provider_ref, provider_type, provider_activity_id, provider_narratives,
			receiver_ref, receiver_type, receiver_activity_id, receiver_narratives)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storedID, pd.Type, pd.PeriodStart.ISODate, pd.PeriodEnd.ISODate,
		amountToNull(pd.Value.Amount), pd.Value.Raw, pd.Value.Currency, pd.Value.ValueDate,
		pd.Provider.Ref, pd.Provider.Type, pd.Provider.ActivityID, narrativesToJSON(pd.Provider.Narratives),
		pd.Receiver.Ref, pd.Receiver.Type, pd.Receiver.ActivityID, narrativesToJSON(pd.Receiver.Narratives))
}

func (t *sqlTx) DeletePlannedDisbursement(ctx context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error {
	return t.deleteFirst(ctx, "planned_disbursements",
		"activity_id = ? AND period_start = ? AND period_end = ? AND "+amountMatch,
		storedID, periodStart, periodEnd, amountToNull(amount), amountToNull(amount))
}

func (t *sqlTx) InsertTransaction(ctx context.Context, storedID int64, tr iati.Transaction) error {
	return t.exec(ctx, "transactions",
		`INSERT INTO transactions (activity_id, ref, humanitarian, type, date,
			amount, raw_value, currency, value_date, description,
			provider_ref, provider_type, provider_activity_id, provider_narratives,
			receiver_ref, receiver_type, receiver_activity_id, receiver_narratives,
			disbursement_channel, flow_type, finance_type, aid_type_code, aid_type_vocabulary, tied_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storedID, tr.Ref, boolToNull(tr.Humanitarian), tr.Type.Code, tr.Date.ISODate,
		amountToNull(tr.Value.Amount), tr.Value.Raw, tr.Value.Currency, tr.Value.ValueDate, textToJSON(tr.Description),
		tr.Provider.Ref, tr.Provider.Type, tr.Provider.ActivityID, narrativesToJSON(tr.Provider.Narratives),
		tr.Receiver.Ref, tr.Receiver.Type, tr.Receiver.ActivityID, narrativesToJSON(tr.Receiver.Narratives),
		tr.DisbChannel.Code, tr.FlowType.Code, tr.FinanceType.Code,
		tr.AidType.Code, tr.AidType.Vocabulary, tr.TiedStatus.Code)
}

func (t *sqlTx) DeleteTransaction(ctx context.Context, storedID int64, typeCode, date string, amount *float64, currency string) error {
	return t.deleteFirst(ctx, "transactions",
		"activity_id = ? AND type = ? AND date = ? AND currency = ? AND "+amountMatch,
		storedID, typeCode, date, currency, amountToNull(amount), amountToNull(amount))
}

func (t *sqlTx) InsertResult(ctx context.Context, storedID int64, result iati.Result) (int64, error) {
	return t.insertReturningID(ctx, "results",
		"INSERT INTO results (activity_id, type, aggregation_status, title, description) VALUES (?, ?, ?, ?, ?)",
		storedID, result.Type, boolToNull(result.AggregationStatus),
		textToJSON(result.Title), textToJSON(result.Description))
}

func (t *sqlTx) InsertIndicator(ctx context.Context, resultID int64, indicator iati.Indicator) (int64, error) {
	var baselineYear, baselineValue, baselineComment string
	var hasBaseline int64
	if indicator.Baseline != nil {
		baselineYear = indicator.Baseline.Year
		baselineValue = indicator.Baseline.Value
		baselineComment = textToJSON(indicator.Baseline.Comment)
		hasBaseline = 1
	}
	return t.insertReturningID(ctx, "result_indicators",
		`INSERT INTO result_indicators (result_id, measure, ascending, title, description,
			baseline_year, baseline_value, baseline_comment, has_baseline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resultID, indicator.Measure, boolToNull(indicator.Ascending),
		textToJSON(indicator.Title), textToJSON(indicator.Description),
		baselineYear, baselineValue, baselineComment, hasBaseline)
}

func (t *sqlTx) InsertIndicatorPeriod(ctx context.Context, indicatorID int64, period iati.IndicatorPeriod) error {
	return t.exec(ctx, "indicator_periods",
		"INSERT INTO indicator_periods (indicator_id, period_start, period_end, target_value, actual_value) VALUES (?, ?, ?, ?, ?)",
		indicatorID, period.PeriodStart.ISODate, period.PeriodEnd.ISODate, period.Target.Value, period.Actual.Value)
}

func (t *sqlTx) InsertContact(ctx context.Context, storedID int64, contact iati.Contact) error {
	return t.exec(ctx, "contacts",
		"INSERT INTO contacts (activity_id, type, organisation, person_name, telephone, email, website) VALUES (?, ?, ?, ?, ?, ?, ?)",
		storedID, contact.Type, textToJSON(contact.Organisation), textToJSON(contact.PersonName),
		contact.Telephone, contact.Email, contact.Website)
}

func (t *sqlTx) InsertRelatedActivity(ctx context.Context, storedID int64, related iati.RelatedActivity) error {
	return t.exec(ctx, "related_activities",
		"INSERT INTO related_activities (activity_id, ref, type) VALUES (?, ?, ?)",
		storedID, related.Ref, related.Type)
}

func (t *sqlTx) DeleteRelatedActivity(ctx context.Context, storedID int64, ref string) error {
	return t.deleteFirst(ctx, "related_activities", "activity_id = ? AND ref = ?", storedID, ref)
}

func (t *sqlTx) InsertLocation(ctx context.Context, storedID int64, location iati.Location) error {
	var srsName, pos string
	if location.Point != nil {
		srsName = location.Point.SRSName
		pos = location.Point.Pos
	}
	return t.exec(ctx, "locations",
		`INSERT INTO locations (activity_id, ref, reach, gazetteer_vocabulary, gazetteer_code,
			name, description, srs_name, pos, exactness, class)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storedID, location.Ref, location.Reach.Code, location.ID.Vocabulary, location.ID.Code,
		textToJSON(location.Name), textToJSON(location.Description), srsName, pos,
		location.Exactness.Code, location.Class.Code)
}

func (t *sqlTx) InsertHumanitarianScope(ctx context.Context, storedID int64, scope iati.HumanitarianScope) error {
	return t.exec(ctx, "humanitarian_scopes",
		"INSERT INTO humanitarian_scopes (activity_id, type, vocabulary, code, narratives) VALUES (?, ?, ?, ?, ?)",
		storedID, scope.Type, scope.Vocabulary, scope.Code, narrativesToJSON(scope.Narratives))
}

func (t *sqlTx) InsertCountryBudgetItems(ctx context.Context, storedID int64, items iati.CountryBudgetItems) error {
	var encoded string
	if len(items.Items) > 0 {
		data, err := json.Marshal(items.Items)
		if err != nil {
			return errors.WrapStore("insert", "country_budget_items", err)
		}
		encoded = string(data)
	}
	return t.exec(ctx, "country_budget_items",
		"INSERT INTO country_budget_items (activity_id, vocabulary, items) VALUES (?, ?, ?)",
		storedID, items.Vocabulary, encoded)
}

// amountMatch is the NULL-safe comparison used by natural-key deletes.
// The bound amount is passed twice.
const amountMatch = "((? IS NULL AND amount IS NULL) OR amount = ?)"

// deleteFirst removes at most one row matching where, mirroring the
// duplicate natural-key rule: re-import of duplicated rows replaces them
// one for one, never all at once.
func (t *sqlTx) deleteFirst(ctx context.Context, table, where string, args ...any) error {
	query := "DELETE FROM " + table + " WHERE id IN (SELECT id FROM " + table + " WHERE " + where + " ORDER BY id LIMIT 1)"
	if _, err := t.tx.ExecContext(ctx, t.store.rebind(query), args...); err != nil {
		return errors.WrapStore("delete", table, err)
	}
	return nil
}
