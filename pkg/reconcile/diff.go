// Package reconcile diffs an imported activity against its stored
// counterpart, field by field. Scalars are normalized to a shared absent
// sentinel before comparison; composite collections are matched row by row
// via natural keys and compared sub-field by sub-field.
//
// The sub-field-complete comparison is deliberate: a row is Identical only
// when every sub-field is Identical, so a re-import can never report
// "already imported" while an underlying organisation reference changed.
package reconcile

import (
	"strconv"

	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/normalize"
)

// MatchState classifies one field or composite row.
type MatchState string

// Match states for field diffs.
const (
	// Identical means both sides carry the same normalized value.
	Identical MatchState = "identical"
	// Conflicting means both sides carry values that differ.
	Conflicting MatchState = "conflicting"
	// NewOnly means only the imported side carries a value.
	NewOnly MatchState = "new_only"
	// CurrentOnly means only the stored side carries a value.
	CurrentOnly MatchState = "current_only"
)

// FieldDiff is the comparison result for one field. Absent values are
// rendered as the empty string on both sides.
type FieldDiff struct {
	FieldName string     `json:"field_name"`
	Imported  string     `json:"imported"`
	Current   string     `json:"current"`
	State     MatchState `json:"state"`
}

// RowDiff is the comparison result for one composite row, such as a
// planned disbursement. The row is Identical only if every sub-field is
// Identical; only fully-Identical rows are eligible for auto-select.
type RowDiff struct {
	Collection    string      `json:"collection"`
	Key           string      `json:"key"`
	ImportedIndex int         `json:"imported_index"` // -1 when CurrentOnly
	StoredIndex   int         `json:"stored_index"`   // -1 when NewOnly
	State         MatchState  `json:"state"`
	AutoSelect    bool        `json:"auto_select"`
	Fields        []FieldDiff `json:"fields,omitempty"`
}

// Path is the row's selection path, stable across re-diffs of the same
// document and stored state.
func (r *RowDiff) Path() string {
	return r.Collection + "[" + r.Key + "]"
}

// Diff is the complete comparison of one imported activity against its
// stored counterpart.
type Diff struct {
	Scalars  []FieldDiff `json:"scalars"`
	Rows     []RowDiff   `json:"rows"`
	Warnings []string    `json:"warnings,omitempty"`
}

// ChangedCount returns the number of scalar fields and rows that are not
// Identical. A zero result after a write is the idempotency check.
func (d *Diff) ChangedCount() int {
	n := 0
	for _, f := range d.Scalars {
		if f.State != Identical {
			n++
		}
	}
	for _, r := range d.Rows {
		if r.State != Identical {
			n++
		}
	}
	return n
}

// Scalar returns the scalar diff with the given field name, or nil.
func (d *Diff) Scalar(name string) *FieldDiff {
	for i := range d.Scalars {
		if d.Scalars[i].FieldName == name {
			return &d.Scalars[i]
		}
	}
	return nil
}

// Row returns the row diff with the given selection path, or nil.
func (d *Diff) Row(path string) *RowDiff {
	for i := range d.Rows {
		if d.Rows[i].Path() == path {
			return &d.Rows[i]
		}
	}
	return nil
}

// Activity diffs an imported activity against the stored one. A nil
// current activity marks every populated field NewOnly, which is how the
// post-create idempotency re-diff works.
func Activity(imported, current *iati.Activity, preferred language.Tag) *Diff {
	if current == nil {
		current = &iati.Activity{}
	}

	diff := &Diff{}
	diff.Scalars = scalarDiffs(imported, current, preferred)

	diff.rowSet("budget", budgetRows(imported.Budgets), budgetRows(current.Budgets))
	diff.rowSet("planned_disbursement", disbursementRows(imported.PlannedDisbursements, preferred), disbursementRows(current.PlannedDisbursements, preferred))
	diff.rowSet("transaction", transactionRows(imported.Transactions, preferred), transactionRows(current.Transactions, preferred))
	diff.rowSet("sector", sectorRows(imported.Sectors, preferred), sectorRows(current.Sectors, preferred))
	diff.rowSet("related_activity", relatedRows(imported.RelatedActivities), relatedRows(current.RelatedActivities))

	return diff
}

// scalarDiffs compares the activity's scalar fields. Both sides pass
// through the normalizer so "", placeholders, and malformed values all
// collapse to the same absent sentinel before comparison.
func scalarDiffs(imported, current *iati.Activity, preferred language.Tag) []FieldDiff {
	fields := []struct {
		name string
		kind normalize.Kind
		imp  string
		cur  string
	}{
		{"iati_identifier", normalize.KindRef, imported.IATIIdentifier, current.IATIIdentifier},
		{"title", normalize.KindText, imported.Title.DisplayText(preferred), current.Title.DisplayText(preferred)},
		{"description", normalize.KindText, imported.Description.DisplayText(preferred), current.Description.DisplayText(preferred)},
		{"reporting_org_ref", normalize.KindRef, imported.ReportingOrg.Ref, current.ReportingOrg.Ref},
		{"reporting_org_type", normalize.KindCode, imported.ReportingOrg.Type, current.ReportingOrg.Type},
		{"reporting_org_name", normalize.KindText, iati.PreferredNarrative(imported.ReportingOrg.Narratives, preferred), iati.PreferredNarrative(current.ReportingOrg.Narratives, preferred)},
		{"activity_status", normalize.KindCode, imported.Status.Code, current.Status.Code},
		{"default_currency", normalize.KindCode, imported.DefaultCurrency, current.DefaultCurrency},
		{"hierarchy", normalize.KindCode, imported.Hierarchy, current.Hierarchy},
		{"planned_start", normalize.KindDate, imported.DateOfType(iati.DateTypePlannedStart), current.DateOfType(iati.DateTypePlannedStart)},
		{"actual_start", normalize.KindDate, imported.DateOfType(iati.DateTypeActualStart), current.DateOfType(iati.DateTypeActualStart)},
		{"planned_end", normalize.KindDate, imported.DateOfType(iati.DateTypePlannedEnd), current.DateOfType(iati.DateTypePlannedEnd)},
		{"actual_end", normalize.KindDate, imported.DateOfType(iati.DateTypeActualEnd), current.DateOfType(iati.DateTypeActualEnd)},
	}

	diffs := make([]FieldDiff, 0, len(fields)+1)
	for _, f := range fields {
		diffs = append(diffs, compare(f.name, normalize.String(f.kind, f.imp), normalize.String(f.kind, f.cur)))
	}

	diffs = append(diffs, compare("humanitarian", boolString(imported.Humanitarian), boolString(current.Humanitarian)))
	return diffs
}

// compare classifies two already-normalized values.
func compare(name, imported, current string) FieldDiff {
	diff := FieldDiff{FieldName: name, Imported: imported, Current: current}
	switch {
	case imported == current:
		diff.State = Identical
	case current == "":
		diff.State = NewOnly
	case imported == "":
		diff.State = CurrentOnly
	default:
		diff.State = Conflicting
	}
	return diff
}

// boolString renders a tri-state boolean for comparison: "true", "false",
// or "" for absent. An explicit false is a value, never absent.
func boolString(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}

// amountString renders a monetary value with its currency as one field,
// "" when the amount is absent.
func amountString(v iati.Value) string {
	if v.Amount == nil {
		return ""
	}
	s := strconv.FormatFloat(*v.Amount, 'f', -1, 64)
	if v.Currency != "" {
		s += " " + v.Currency
	}
	return s
}
