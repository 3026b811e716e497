package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/errors"
)

func TestCount(t *testing.T) {
	doc := wrapActivities(disbursementActivityXML, secondActivityXML)
	n, err := Count(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCountSingleActivity(t *testing.T) {
	n, err := Count(strings.NewReader(wrapActivities(secondActivityXML)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCountRejectsWrongRoot(t *testing.T) {
	_, err := Count(strings.NewReader(`<iati-organisations></iati-organisations>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
	assert.Contains(t, err.Error(), "iati-activities")
}

func TestLoadIndexesEveryActivity(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(disbursementActivityXML, secondActivityXML, disbursementActivityXML)))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Count())
	assert.Equal(t, "2.03", doc.Version)
}

func TestLoadRejectsMalformedDocument(t *testing.T) {
	_, err := LoadBytes([]byte(`<iati-activities><iati-activity>`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestParseMetadata(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(disbursementActivityXML, secondActivityXML)))
	require.NoError(t, err)

	candidates := doc.ParseMetadata(language.English)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "AA-AAA-123456789-ABC123", first.IATIIdentifier)
	assert.Equal(t, "Activity title", first.Title)
	assert.Equal(t, "General activity description text.", first.Description)
	assert.Equal(t, "Organisation name", first.ReportingOrg)
	assert.Equal(t, "2", first.Status)
	assert.Equal(t, "2012-04-15", first.PlannedStart)
	assert.Equal(t, "2015-12-31", first.PlannedEnd)
	assert.Equal(t, 2, first.TransactionCount)
	require.NotNil(t, first.BudgetTotal)
	assert.Equal(t, 3500.0, *first.BudgetTotal)
	assert.Equal(t, "EUR", first.BudgetCurrency)
	assert.True(t, first.Parseable())

	second := candidates[1]
	assert.Equal(t, "GB-GOV-1-12345", second.IATIIdentifier)
	assert.Equal(t, "UK Government", second.ReportingOrg)
	assert.Nil(t, second.BudgetTotal)
	assert.Equal(t, 0, second.TransactionCount)
}

func TestParseMetadataPreferredLanguage(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(disbursementActivityXML)))
	require.NoError(t, err)

	fr := doc.ParseMetadata(language.French)
	assert.Equal(t, "Titre de l'activité", fr[0].Title)
}

func TestParseMetadataMalformedActivityIsIsolated(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(secondActivityXML, malformedActivityXML, disbursementActivityXML)))
	require.NoError(t, err)
	require.Equal(t, 3, doc.Count())

	candidates := doc.ParseMetadata(language.English)
	require.Len(t, candidates, 3)

	assert.True(t, candidates[0].Parseable())
	assert.False(t, candidates[1].Parseable())
	assert.NotEmpty(t, candidates[1].ParseErr)
	assert.True(t, candidates[2].Parseable())
	assert.Equal(t, "AA-AAA-123456789-ABC123", candidates[2].IATIIdentifier)
}

func TestParseFull(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(disbursementActivityXML)))
	require.NoError(t, err)

	activity, err := doc.ParseFull(0)
	require.NoError(t, err)

	assert.Equal(t, "AA-AAA-123456789-ABC123", strings.TrimSpace(activity.IATIIdentifier))
	assert.Equal(t, "EUR", activity.DefaultCurrency)
	require.NotNil(t, activity.Humanitarian)
	assert.True(t, *activity.Humanitarian)

	require.Len(t, activity.Sectors, 1)
	assert.Equal(t, "11110", activity.Sectors[0].Code)
	assert.Equal(t, "1", activity.Sectors[0].Vocabulary)

	require.Len(t, activity.CountryBudgetItems, 1)
	require.Len(t, activity.CountryBudgetItems[0].Items, 1)
	assert.Equal(t, "1.1.1", activity.CountryBudgetItems[0].Items[0].Code)

	require.Len(t, activity.HumanitarianScopes, 1)
	assert.Equal(t, "EQ-2015-000048-NPL", activity.HumanitarianScopes[0].Code)

	require.Len(t, activity.Budgets, 2)
	require.NotNil(t, activity.Budgets[0].Value.Amount)
	assert.Equal(t, 1000.0, *activity.Budgets[0].Value.Amount)

	require.Len(t, activity.PlannedDisbursements, 1)
	pd := activity.PlannedDisbursements[0]
	assert.Equal(t, "1", pd.Type)
	assert.Equal(t, "2014-01-01", pd.PeriodStart.ISODate)
	assert.Equal(t, "2014-12-31", pd.PeriodEnd.ISODate)
	require.NotNil(t, pd.Value.Amount)
	assert.Equal(t, 3000.0, *pd.Value.Amount)
	assert.Equal(t, "EUR", pd.Value.Currency)
	assert.Equal(t, "2014-01-01", pd.Value.ValueDate)
	assert.Equal(t, "BB-BBB-123456789", pd.Provider.Ref)
	assert.Equal(t, "10", pd.Provider.Type)
	assert.Equal(t, "BB-BBB-123456789-1234AA", pd.Provider.ActivityID)
	assert.Equal(t, "Agency B", pd.Provider.Narratives[0].Text)
	assert.Equal(t, "AA-AAA-123456789", pd.Receiver.Ref)
	assert.Equal(t, "23", pd.Receiver.Type)
	assert.Equal(t, "AA-AAA-123456789-1234", pd.Receiver.ActivityID)
	assert.Equal(t, "Agency A", pd.Receiver.Narratives[0].Text)

	require.Len(t, activity.Transactions, 2)
	tx := activity.Transactions[0]
	assert.Equal(t, "1", tx.Type.Code)
	assert.Equal(t, "2012-01-01", tx.Date.ISODate)
	require.NotNil(t, tx.Value.Amount)
	assert.Equal(t, 1000.0, *tx.Value.Amount)
	assert.Equal(t, "1", tx.DisbChannel.Code)
	assert.Equal(t, "10", tx.FlowType.Code)
	assert.Equal(t, "110", tx.FinanceType.Code)
	assert.Equal(t, "A01", tx.AidType.Code)
	assert.Equal(t, "3", tx.TiedStatus.Code)
	require.NotNil(t, tx.Humanitarian)
	assert.True(t, *tx.Humanitarian)
	// Second transaction carries no humanitarian attribute: absent, not false.
	assert.Nil(t, activity.Transactions[1].Humanitarian)

	require.Len(t, activity.Results, 1)
	res := activity.Results[0]
	require.NotNil(t, res.AggregationStatus)
	assert.True(t, *res.AggregationStatus)
	require.Len(t, res.Indicators, 1)
	ind := res.Indicators[0]
	require.NotNil(t, ind.Ascending)
	assert.True(t, *ind.Ascending)
	require.NotNil(t, ind.Baseline)
	assert.Equal(t, "2012", ind.Baseline.Year)
	assert.Equal(t, "10", ind.Baseline.Value)
	require.Len(t, ind.Periods, 1)
	assert.Equal(t, "10", ind.Periods[0].Target.Value)
	assert.Equal(t, "11", ind.Periods[0].Actual.Value)

	require.Len(t, activity.Contacts, 1)
	assert.Equal(t, "someone@example.org", strings.TrimSpace(activity.Contacts[0].Email))

	require.Len(t, activity.RelatedActivities, 1)
	assert.Equal(t, "AA-AAA-123456789-6789", activity.RelatedActivities[0].Ref)

	require.Len(t, activity.Locations, 1)
	assert.Equal(t, "AF-KAN", activity.Locations[0].Ref)
	require.NotNil(t, activity.Locations[0].Point)
	assert.Equal(t, "31.616944 65.716944", activity.Locations[0].Point.Pos)
}

func TestParseFullDeterministic(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(disbursementActivityXML, secondActivityXML)))
	require.NoError(t, err)

	first, err := doc.ParseFull(0)
	require.NoError(t, err)
	again, err := doc.ParseFull(0)
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestParseFullIndexOutOfRange(t *testing.T) {
	doc, err := LoadBytes([]byte(wrapActivities(secondActivityXML)))
	require.NoError(t, err)

	_, err = doc.ParseFull(5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrParse))
}

func TestUnparseableValueIsAbsentNotZero(t *testing.T) {
	activityXML := `
  <iati-activity>
    <iati-identifier>AA-AAA-1-X</iati-identifier>
    <budget>
      <period-start iso-date="2014-01-01" />
      <period-end iso-date="2014-12-31" />
      <value currency="EUR">not-a-number</value>
    </budget>
  </iati-activity>`

	doc, err := LoadBytes([]byte(wrapActivities(activityXML)))
	require.NoError(t, err)

	activity, err := doc.ParseFull(0)
	require.NoError(t, err)
	require.Len(t, activity.Budgets, 1)
	assert.Nil(t, activity.Budgets[0].Value.Amount)

	candidates := doc.ParseMetadata(language.English)
	require.Len(t, candidates, 1)
	assert.Nil(t, candidates[0].BudgetTotal)
	assert.NotEmpty(t, candidates[0].Diagnostics)
}
