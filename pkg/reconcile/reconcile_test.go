package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/iati"
)

func amt(v float64) *float64 { return &v }

func testDisbursement() iati.PlannedDisbursement {
	return iati.PlannedDisbursement{
		Type:        "1",
		PeriodStart: iati.ISODate{ISODate: "2014-01-01"},
		PeriodEnd:   iati.ISODate{ISODate: "2014-12-31"},
		Value:       iati.Value{Amount: amt(3000), Currency: "EUR", ValueDate: "2014-01-01"},
		Provider: iati.ProviderOrg{
			Ref:        "BB-BBB-123456789",
			Type:       "10",
			ActivityID: "BB-BBB-123456789-1234AA",
			Narratives: []iati.Narrative{{Text: "Agency B"}},
		},
		Receiver: iati.ReceiverOrg{
			Ref:        "AA-AAA-123456789",
			Type:       "23",
			ActivityID: "AA-AAA-123456789-1234",
			Narratives: []iati.Narrative{{Text: "Agency A"}},
		},
	}
}

func testActivity() *iati.Activity {
	return &iati.Activity{
		IATIIdentifier:       "AA-AAA-123456789-ABC123",
		Title:                iati.TextBlock{Narratives: []iati.Narrative{{Text: "Activity title"}}},
		Status:               iati.CodeAttr{Code: "2"},
		ReportingOrg:         iati.ReportingOrg{Ref: "AA-AAA-123456789", Type: "40"},
		PlannedDisbursements: []iati.PlannedDisbursement{testDisbursement()},
	}
}

func TestIdenticalReimportAutoSelectsDisbursement(t *testing.T) {
	diff := Activity(testActivity(), testActivity(), language.English)

	rd := diff.Row("planned_disbursement[2014-01-01|2014-12-31|3000]")
	require.NotNil(t, rd)
	assert.Equal(t, Identical, rd.State)
	assert.True(t, rd.AutoSelect)

	// All 13 sub-fields, every one Identical.
	require.Len(t, rd.Fields, 13)
	for _, f := range rd.Fields {
		assert.Equal(t, Identical, f.State, "sub-field %s", f.FieldName)
	}

	names := make([]string, 0, len(rd.Fields))
	for _, f := range rd.Fields {
		names = append(names, f.FieldName)
	}
	assert.Equal(t, []string{
		"type", "period_start", "period_end", "value", "value_date",
		"provider_ref", "provider_name", "provider_type", "provider_activity_id",
		"receiver_ref", "receiver_name", "receiver_type", "receiver_activity_id",
	}, names)

	assert.Zero(t, diff.ChangedCount())
}

func TestSingleSubFieldMismatchConflictsWholeRow(t *testing.T) {
	// Same period and amount, so the natural key still matches, but the
	// receiver activity reference changed. A matching headline value must
	// not hide that.
	changed := testActivity()
	changed.PlannedDisbursements[0].Receiver.ActivityID = "AA-AAA-123456789-9999"

	diff := Activity(changed, testActivity(), language.English)

	rd := diff.Row("planned_disbursement[2014-01-01|2014-12-31|3000]")
	require.NotNil(t, rd)
	assert.Equal(t, Conflicting, rd.State)
	assert.False(t, rd.AutoSelect)

	conflicts := 0
	for _, f := range rd.Fields {
		if f.State != Identical {
			conflicts++
			assert.Equal(t, "receiver_activity_id", f.FieldName)
		}
	}
	assert.Equal(t, 1, conflicts)
}

func TestUnmatchedRowsAreNewAndCurrentOnly(t *testing.T) {
	imported := testActivity()
	imported.PlannedDisbursements[0].PeriodStart.ISODate = "2015-01-01"
	imported.PlannedDisbursements[0].PeriodEnd.ISODate = "2015-12-31"

	diff := Activity(imported, testActivity(), language.English)

	newRow := diff.Row("planned_disbursement[2015-01-01|2015-12-31|3000]")
	require.NotNil(t, newRow)
	assert.Equal(t, NewOnly, newRow.State)
	assert.False(t, newRow.AutoSelect)
	assert.Equal(t, -1, newRow.StoredIndex)

	oldRow := diff.Row("planned_disbursement[2014-01-01|2014-12-31|3000]")
	require.NotNil(t, oldRow)
	assert.Equal(t, CurrentOnly, oldRow.State)
	assert.Equal(t, -1, oldRow.ImportedIndex)
}

func TestDuplicateNaturalKeyWarnsAndMatchesFirst(t *testing.T) {
	imported := testActivity()
	dup := testDisbursement()
	dup.Provider.Narratives = []iati.Narrative{{Text: "Agency C"}}
	imported.PlannedDisbursements = append(imported.PlannedDisbursements, dup)

	diff := Activity(imported, testActivity(), language.English)

	require.NotEmpty(t, diff.Warnings)
	assert.Contains(t, diff.Warnings[0], "natural key")

	// First imported row matches the stored row; the duplicate is NewOnly.
	var states []MatchState
	for _, rd := range diff.Rows {
		if rd.Collection == "planned_disbursement" {
			states = append(states, rd.State)
		}
	}
	assert.Equal(t, []MatchState{Identical, NewOnly}, states)
}

func TestScalarNormalizationBeforeComparison(t *testing.T) {
	imported := testActivity()
	imported.Status.Code = " none " // placeholder: normalizes to absent
	current := testActivity()
	current.Status.Code = ""

	diff := Activity(imported, current, language.English)
	status := diff.Scalar("activity_status")
	require.NotNil(t, status)
	assert.Equal(t, Identical, status.State, "both sides are absent after normalization")
	assert.Empty(t, status.Imported)
}

func TestScalarStates(t *testing.T) {
	imported := testActivity()
	imported.Title.Narratives[0].Text = "New title"
	imported.DefaultCurrency = "GBP"
	current := testActivity()
	current.Description = iati.TextBlock{Narratives: []iati.Narrative{{Text: "Old description"}}}

	diff := Activity(imported, current, language.English)

	assert.Equal(t, Conflicting, diff.Scalar("title").State)
	assert.Equal(t, NewOnly, diff.Scalar("default_currency").State)
	assert.Equal(t, CurrentOnly, diff.Scalar("description").State)
	assert.Equal(t, Identical, diff.Scalar("iati_identifier").State)
}

func TestBooleanFalseIsAValueNotAbsent(t *testing.T) {
	f := false
	imported := testActivity()
	imported.Humanitarian = &f
	current := testActivity() // humanitarian absent

	diff := Activity(imported, current, language.English)
	h := diff.Scalar("humanitarian")
	require.NotNil(t, h)
	assert.Equal(t, NewOnly, h.State, "explicit false vs absent is a change, not a no-op")
	assert.Equal(t, "false", h.Imported)
}

func TestNilCurrentMarksEverythingNew(t *testing.T) {
	diff := Activity(testActivity(), nil, language.English)

	assert.Equal(t, NewOnly, diff.Scalar("iati_identifier").State)
	rd := diff.Row("planned_disbursement[2014-01-01|2014-12-31|3000]")
	require.NotNil(t, rd)
	assert.Equal(t, NewOnly, rd.State)
	assert.Positive(t, diff.ChangedCount())
}

func TestSectorAndRelatedActivityRows(t *testing.T) {
	imported := testActivity()
	imported.Sectors = []iati.Sector{{Vocabulary: "1", Code: "11110", Percentage: "100"}}
	imported.RelatedActivities = []iati.RelatedActivity{{Ref: "AA-AAA-123456789-6789", Type: "1"}}
	current := testActivity()
	current.Sectors = []iati.Sector{{Vocabulary: "1", Code: "11110", Percentage: "60"}}

	diff := Activity(imported, current, language.English)

	sector := diff.Row("sector[1|11110]")
	require.NotNil(t, sector)
	assert.Equal(t, Conflicting, sector.State)

	related := diff.Row("related_activity[AA-AAA-123456789-6789]")
	require.NotNil(t, related)
	assert.Equal(t, NewOnly, related.State)
}

func TestTransactionNaturalKey(t *testing.T) {
	imported := testActivity()
	imported.Transactions = []iati.Transaction{{
		Type:  iati.CodeAttr{Code: "3"},
		Date:  iati.ISODate{ISODate: "2012-03-01"},
		Value: iati.Value{Amount: amt(400), Currency: "EUR"},
	}}
	current := testActivity()
	current.Transactions = []iati.Transaction{{
		Type:  iati.CodeAttr{Code: "3"},
		Date:  iati.ISODate{ISODate: "2012-03-01"},
		Value: iati.Value{Amount: amt(400), Currency: "EUR"},
	}}

	diff := Activity(imported, current, language.English)
	rd := diff.Row("transaction[3|2012-03-01|400|EUR]")
	require.NotNil(t, rd)
	assert.Equal(t, Identical, rd.State)
	assert.True(t, rd.AutoSelect)
}
