package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
)

// resultRef locates a staged result row for indicator inserts.
type resultRef struct {
	storedID int64
	index    int
}

// indicatorRef locates a staged indicator row for period inserts.
type indicatorRef struct {
	storedID  int64
	resultIdx int
	index     int
}

// memTx stages mutations until the surrounding WithTx commits. The store
// mutex is held for the transaction's lifetime, so reads here are
// race-free.
type memTx struct {
	store      *Store
	activities map[int64]*iati.Activity
	ids        map[string]int64
	removedIDs map[string]bool
	updated    map[int64]time.Time
	results    map[int64]resultRef
	indicators map[int64]indicatorRef
}

// touched returns the staged copy of one activity, cloning it from the
// committed state on first touch.
func (t *memTx) touched(storedID int64) (*iati.Activity, error) {
	if a, ok := t.activities[storedID]; ok {
		return a, nil
	}
	base, ok := t.store.activities[storedID]
	if !ok {
		return nil, errors.NewNotFoundError("activity", fmt.Sprintf("%d", storedID))
	}
	staged, err := clone(base)
	if err != nil {
		return nil, err
	}
	t.activities[storedID] = staged
	return staged, nil
}

func (t *memTx) touch(storedID int64) {
	t.updated[storedID] = t.store.now()
}

// InsertActivity implements store.Tx.
func (t *memTx) InsertActivity(_ context.Context, activity *iati.Activity) (int64, error) {
	identifier := strings.TrimSpace(activity.IATIIdentifier)
	if identifier != "" {
		if _, dup := t.store.ids[identifier]; dup {
			return 0, errors.NewConflictError(identifier, nil)
		}
		if _, dup := t.ids[identifier]; dup {
			return 0, errors.NewConflictError(identifier, nil)
		}
	}

	staged, err := clone(activity)
	if err != nil {
		return 0, err
	}

	t.store.seq++
	storedID := t.store.seq
	staged.StoredID = storedID

	// The scalar row only: child collections are inserted explicitly, in
	// dependency order, by the orchestrator.
	staged.Sectors = nil
	staged.CountryBudgetItems = nil
	staged.HumanitarianScopes = nil
	staged.Budgets = nil
	staged.PlannedDisbursements = nil
	staged.Transactions = nil
	staged.Results = nil
	staged.Contacts = nil
	staged.RelatedActivities = nil
	staged.Locations = nil

	t.activities[storedID] = staged
	if identifier != "" {
		t.ids[identifier] = storedID
	}
	t.touch(storedID)
	return storedID, nil
}

// UpdateActivityScalars implements store.Tx.
func (t *memTx) UpdateActivityScalars(_ context.Context, storedID int64, imported *iati.Activity, fields []string) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}

	for _, name := range fields {
		switch name {
		case "iati_identifier":
			// Re-key the identifier index along with the value.
			old := staged.IATIIdentifier
			staged.IATIIdentifier = imported.IATIIdentifier
			if old != "" {
				t.removedIDs[old] = true
				delete(t.ids, old)
			}
			if staged.IATIIdentifier != "" {
				t.ids[staged.IATIIdentifier] = storedID
			}
		case "title":
			staged.Title = copyTextBlock(imported.Title)
		case "description":
			staged.Description = copyTextBlock(imported.Description)
		case "reporting_org_ref":
			staged.ReportingOrg.Ref = imported.ReportingOrg.Ref
		case "reporting_org_type":
			staged.ReportingOrg.Type = imported.ReportingOrg.Type
		case "reporting_org_name":
			staged.ReportingOrg.Narratives = copyNarratives(imported.ReportingOrg.Narratives)
		case "activity_status":
			staged.Status = imported.Status
		case "default_currency":
			staged.DefaultCurrency = imported.DefaultCurrency
		case "hierarchy":
			staged.Hierarchy = imported.Hierarchy
		case "planned_start":
			setDate(staged, iati.DateTypePlannedStart, imported.DateOfType(iati.DateTypePlannedStart))
		case "actual_start":
			setDate(staged, iati.DateTypeActualStart, imported.DateOfType(iati.DateTypeActualStart))
		case "planned_end":
			setDate(staged, iati.DateTypePlannedEnd, imported.DateOfType(iati.DateTypePlannedEnd))
		case "actual_end":
			setDate(staged, iati.DateTypeActualEnd, imported.DateOfType(iati.DateTypeActualEnd))
		case "humanitarian":
			staged.Humanitarian = copyBool(imported.Humanitarian)
		default:
			return errors.NewStoreError("update", "activities", fmt.Errorf("unknown scalar field %q", name))
		}
	}

	t.touch(storedID)
	return nil
}

// setDate replaces or removes the date entry of one type.
func setDate(a *iati.Activity, dateType, isoDate string) {
	for i := range a.Dates {
		if a.Dates[i].Type == dateType {
			if isoDate == "" {
				a.Dates = append(a.Dates[:i], a.Dates[i+1:]...)
			} else {
				a.Dates[i].ISODate = isoDate
			}
			return
		}
	}
	if isoDate != "" {
		a.Dates = append(a.Dates, iati.ActivityDate{Type: dateType, ISODate: isoDate})
	}
}

func copyTextBlock(t iati.TextBlock) iati.TextBlock {
	return iati.TextBlock{Narratives: copyNarratives(t.Narratives)}
}

func copyNarratives(in []iati.Narrative) []iati.Narrative {
	if in == nil {
		return nil
	}
	out := make([]iati.Narrative, len(in))
	copy(out, in)
	return out
}

func copyBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// InsertSector implements store.Tx.
func (t *memTx) InsertSector(_ context.Context, storedID int64, sector iati.Sector) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.Sectors = append(staged.Sectors, sector)
	t.touch(storedID)
	return nil
}

// DeleteSector implements store.Tx, removing the first row matching the
// natural key.
func (t *memTx) DeleteSector(_ context.Context, storedID int64, vocabulary, code string) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	for i, s := range staged.Sectors {
		if s.Vocabulary == vocabulary && s.Code == code {
			staged.Sectors = append(staged.Sectors[:i], staged.Sectors[i+1:]...)
			t.touch(storedID)
			return nil
		}
	}
	return nil
}

// InsertBudget implements store.Tx.
func (t *memTx) InsertBudget(_ context.Context, storedID int64, budget iati.Budget) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.Budgets = append(staged.Budgets, budget)
	t.touch(storedID)
	return nil
}

// DeleteBudget implements store.Tx.
func (t *memTx) DeleteBudget(_ context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	for i, b := range staged.Budgets {
		if b.PeriodStart.ISODate == periodStart && b.PeriodEnd.ISODate == periodEnd && amountEqual(b.Value.Amount, amount) {
			staged.Budgets = append(staged.Budgets[:i], staged.Budgets[i+1:]...)
			t.touch(storedID)
			return nil
		}
	}
	return nil
}

// InsertPlannedDisbursement implements store.Tx.
func (t *memTx) InsertPlannedDisbursement(_ context.Context, storedID int64, pd iati.PlannedDisbursement) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.PlannedDisbursements = append(staged.PlannedDisbursements, pd)
	t.touch(storedID)
	return nil
}

// DeletePlannedDisbursement implements store.Tx.
func (t *memTx) DeletePlannedDisbursement(_ context.Context, storedID int64, periodStart, periodEnd string, amount *float64) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	for i, pd := range staged.PlannedDisbursements {
		if pd.PeriodStart.ISODate == periodStart && pd.PeriodEnd.ISODate == periodEnd && amountEqual(pd.Value.Amount, amount) {
			staged.PlannedDisbursements = append(staged.PlannedDisbursements[:i], staged.PlannedDisbursements[i+1:]...)
			t.touch(storedID)
			return nil
		}
	}
	return nil
}

// InsertTransaction implements store.Tx.
func (t *memTx) InsertTransaction(_ context.Context, storedID int64, tx iati.Transaction) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.Transactions = append(staged.Transactions, tx)
	t.touch(storedID)
	return nil
}

// DeleteTransaction implements store.Tx.
func (t *memTx) DeleteTransaction(_ context.Context, storedID int64, typeCode, date string, amount *float64, currency string) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	for i, tx := range staged.Transactions {
		if tx.Type.Code == typeCode && tx.Date.ISODate == date && amountEqual(tx.Value.Amount, amount) && tx.Value.Currency == currency {
			staged.Transactions = append(staged.Transactions[:i], staged.Transactions[i+1:]...)
			t.touch(storedID)
			return nil
		}
	}
	return nil
}

// InsertResult implements store.Tx, writing the result row only.
func (t *memTx) InsertResult(_ context.Context, storedID int64, result iati.Result) (int64, error) {
	staged, err := t.touched(storedID)
	if err != nil {
		return 0, err
	}
	row := result
	row.Indicators = nil
	staged.Results = append(staged.Results, row)

	t.store.seq++
	id := t.store.seq
	t.results[id] = resultRef{storedID: storedID, index: len(staged.Results) - 1}
	t.touch(storedID)
	return id, nil
}

// InsertIndicator implements store.Tx, writing the indicator row with its
// inline baseline.
func (t *memTx) InsertIndicator(_ context.Context, resultID int64, indicator iati.Indicator) (int64, error) {
	ref, ok := t.results[resultID]
	if !ok {
		return 0, errors.NewNotFoundError("result", fmt.Sprintf("%d", resultID))
	}
	staged := t.activities[ref.storedID]

	row := indicator
	row.Periods = nil
	staged.Results[ref.index].Indicators = append(staged.Results[ref.index].Indicators, row)

	t.store.seq++
	id := t.store.seq
	t.indicators[id] = indicatorRef{
		storedID:  ref.storedID,
		resultIdx: ref.index,
		index:     len(staged.Results[ref.index].Indicators) - 1,
	}
	t.touch(ref.storedID)
	return id, nil
}

// InsertIndicatorPeriod implements store.Tx.
func (t *memTx) InsertIndicatorPeriod(_ context.Context, indicatorID int64, period iati.IndicatorPeriod) error {
	ref, ok := t.indicators[indicatorID]
	if !ok {
		return errors.NewNotFoundError("indicator", fmt.Sprintf("%d", indicatorID))
	}
	staged := t.activities[ref.storedID]
	ind := &staged.Results[ref.resultIdx].Indicators[ref.index]
	ind.Periods = append(ind.Periods, period)
	t.touch(ref.storedID)
	return nil
}

// InsertContact implements store.Tx.
func (t *memTx) InsertContact(_ context.Context, storedID int64, contact iati.Contact) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.Contacts = append(staged.Contacts, contact)
	t.touch(storedID)
	return nil
}

// InsertRelatedActivity implements store.Tx.
func (t *memTx) InsertRelatedActivity(_ context.Context, storedID int64, related iati.RelatedActivity) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.RelatedActivities = append(staged.RelatedActivities, related)
	t.touch(storedID)
	return nil
}

// DeleteRelatedActivity implements store.Tx.
func (t *memTx) DeleteRelatedActivity(_ context.Context, storedID int64, ref string) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	for i, ra := range staged.RelatedActivities {
		if ra.Ref == ref {
			staged.RelatedActivities = append(staged.RelatedActivities[:i], staged.RelatedActivities[i+1:]...)
			t.touch(storedID)
			return nil
		}
	}
	return nil
}

// InsertLocation implements store.Tx.
func (t *memTx) InsertLocation(_ context.Context, storedID int64, location iati.Location) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.Locations = append(staged.Locations, location)
	t.touch(storedID)
	return nil
}

// InsertHumanitarianScope implements store.Tx.
func (t *memTx) InsertHumanitarianScope(_ context.Context, storedID int64, scope iati.HumanitarianScope) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.HumanitarianScopes = append(staged.HumanitarianScopes, scope)
	t.touch(storedID)
	return nil
}

// InsertCountryBudgetItems implements store.Tx.
func (t *memTx) InsertCountryBudgetItems(_ context.Context, storedID int64, items iati.CountryBudgetItems) error {
	staged, err := t.touched(storedID)
	if err != nil {
		return err
	}
	staged.CountryBudgetItems = append(staged.CountryBudgetItems, items)
	t.touch(storedID)
	return nil
}

// amountEqual compares two optional amounts; two absent amounts match.
func amountEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
