// Package iati defines the domain model for IATI-standard aid activities:
// the persisted Activity aggregate with its child collections, and the
// ephemeral ActivityCandidate produced during import preview.
//
// Optional values follow one convention throughout: string fields use ""
// for absent, numeric and boolean fields use nil pointers. A field that
// failed to parse is absent, never zero or epoch, so reconciliation can
// tell "not provided" from "provided as zero".
package iati

// Activity is one persisted aid activity. The IATI identifier is the
// unique key when present; uniqueness is enforced at the store.
type Activity struct {
	StoredID int64 `xml:"-" json:"-"`

	IATIIdentifier  string `xml:"iati-identifier" json:"iati_identifier"`
	DefaultCurrency string `xml:"default-currency,attr" json:"default_currency,omitempty"`
	Hierarchy       string `xml:"hierarchy,attr" json:"hierarchy,omitempty"`
	Humanitarian    *bool  `xml:"-" json:"humanitarian,omitempty"`
	LastUpdated     string `xml:"last-updated-datetime,attr" json:"last_updated,omitempty"`

	ReportingOrg ReportingOrg   `xml:"reporting-org" json:"reporting_org"`
	Title        TextBlock      `xml:"title" json:"title"`
	Description  TextBlock      `xml:"description" json:"description"`
	Status       CodeAttr       `xml:"activity-status" json:"status"`
	Dates        []ActivityDate `xml:"activity-date" json:"dates,omitempty"`

	Sectors              []Sector              `xml:"sector" json:"sectors,omitempty"`
	CountryBudgetItems   []CountryBudgetItems  `xml:"country-budget-items" json:"country_budget_items,omitempty"`
	HumanitarianScopes   []HumanitarianScope   `xml:"humanitarian-scope" json:"humanitarian_scopes,omitempty"`
	Budgets              []Budget              `xml:"budget" json:"budgets,omitempty"`
	PlannedDisbursements []PlannedDisbursement `xml:"planned-disbursement" json:"planned_disbursements,omitempty"`
	Transactions         []Transaction         `xml:"transaction" json:"transactions,omitempty"`
	Results              []Result              `xml:"result" json:"results,omitempty"`
	Contacts             []Contact             `xml:"contact-info" json:"contacts,omitempty"`
	RelatedActivities    []RelatedActivity     `xml:"related-activity" json:"related_activities,omitempty"`
	Locations            []Location            `xml:"location" json:"locations,omitempty"`

	// RawHumanitarian captures the humanitarian attribute before boolean
	// normalization; the parser fills Humanitarian from it.
	RawHumanitarian string `xml:"humanitarian,attr" json:"-"`
}

// Narrative is one language-tagged text value.
type Narrative struct {
	Lang string `xml:"lang,attr" json:"lang,omitempty"`
	Text string `xml:",chardata" json:"text"`
}

// TextBlock is a multilingual element such as title or description.
// The full narrative list is retained for persistence; display code picks
// the preferred language.
type TextBlock struct {
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// CodeAttr is an element whose payload is a single code attribute,
// such as activity-status or transaction-type.
type CodeAttr struct {
	Code string `xml:"code,attr" json:"code,omitempty"`
}

// ReportingOrg identifies the organisation reporting the activity.
type ReportingOrg struct {
	Ref        string      `xml:"ref,attr" json:"ref,omitempty"`
	Type       string      `xml:"type,attr" json:"type,omitempty"`
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// ActivityDate is one dated milestone. Type codes: 1 planned start,
// 2 actual start, 3 planned end, 4 actual end.
type ActivityDate struct {
	Type    string `xml:"type,attr" json:"type"`
	ISODate string `xml:"iso-date,attr" json:"iso_date"`
}

// Date type codes used by ActivityDate.
const (
	DateTypePlannedStart = "1"
	DateTypeActualStart  = "2"
	DateTypePlannedEnd   = "3"
	DateTypeActualEnd    = "4"
)

// DateOfType returns the first date of the given type, or "" when absent.
func (a *Activity) DateOfType(dateType string) string {
	for _, d := range a.Dates {
		if d.Type == dateType {
			return d.ISODate
		}
	}
	return ""
}

// Value is a monetary amount with currency and value date. Amount is
// filled by the parser from the raw element text; a raw value that does
// not parse as a decimal leaves Amount nil.
type Value struct {
	Currency  string   `xml:"currency,attr" json:"currency,omitempty"`
	ValueDate string   `xml:"value-date,attr" json:"value_date,omitempty"`
	Raw       string   `xml:",chardata" json:"-"`
	Amount    *float64 `xml:"-" json:"amount,omitempty"`
}

// Sector is one sector classification row.
type Sector struct {
	Vocabulary string      `xml:"vocabulary,attr" json:"vocabulary,omitempty"`
	Code       string      `xml:"code,attr" json:"code"`
	Percentage string      `xml:"percentage,attr" json:"percentage,omitempty"`
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// CountryBudgetItems groups budget-item rows under one vocabulary.
type CountryBudgetItems struct {
	Vocabulary string       `xml:"vocabulary,attr" json:"vocabulary,omitempty"`
	Items      []BudgetItem `xml:"budget-item" json:"items,omitempty"`
}

// BudgetItem is one country budget item row.
type BudgetItem struct {
	Code        string    `xml:"code,attr" json:"code"`
	Percentage  string    `xml:"percentage,attr" json:"percentage,omitempty"`
	Description TextBlock `xml:"description" json:"description"`
}

// HumanitarianScope classifies an activity against a humanitarian event
// or appeal vocabulary.
type HumanitarianScope struct {
	Type       string      `xml:"type,attr" json:"type"`
	Vocabulary string      `xml:"vocabulary,attr" json:"vocabulary,omitempty"`
	Code       string      `xml:"code,attr" json:"code"`
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// Budget is one budget period row. Type codes: 1 original, 2 revised.
type Budget struct {
	Type        string  `xml:"type,attr" json:"type,omitempty"`
	Status      string  `xml:"status,attr" json:"status,omitempty"`
	PeriodStart ISODate `xml:"period-start" json:"period_start"`
	PeriodEnd   ISODate `xml:"period-end" json:"period_end"`
	Value       Value   `xml:"value" json:"value"`
}

// ISODate is an element carrying an iso-date attribute.
type ISODate struct {
	ISODate string `xml:"iso-date,attr" json:"iso_date,omitempty"`
}

// ProviderOrg identifies the organisation providing funds.
type ProviderOrg struct {
	Ref        string      `xml:"ref,attr" json:"ref,omitempty"`
	Type       string      `xml:"type,attr" json:"type,omitempty"`
	ActivityID string      `xml:"provider-activity-id,attr" json:"activity_id,omitempty"`
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// ReceiverOrg identifies the organisation receiving funds.
type ReceiverOrg struct {
	Ref        string      `xml:"ref,attr" json:"ref,omitempty"`
	Type       string      `xml:"type,attr" json:"type,omitempty"`
	ActivityID string      `xml:"receiver-activity-id,attr" json:"activity_id,omitempty"`
	Narratives []Narrative `xml:"narrative" json:"narratives,omitempty"`
}

// PlannedDisbursement is one planned disbursement row with full provider
// and receiver organisation blocks. Type codes: 1 original, 2 revised.
type PlannedDisbursement struct {
	Type        string      `xml:"type,attr" json:"type,omitempty"`
	PeriodStart ISODate     `xml:"period-start" json:"period_start"`
	PeriodEnd   ISODate     `xml:"period-end" json:"period_end"`
	Value       Value       `xml:"value" json:"value"`
	Provider    ProviderOrg `xml:"provider-org" json:"provider"`
	Receiver    ReceiverOrg `xml:"receiver-org" json:"receiver"`
}

// Transaction is one financial transaction row.
type Transaction struct {
	Ref             string      `xml:"ref,attr" json:"ref,omitempty"`
	RawHumanitarian string      `xml:"humanitarian,attr" json:"-"`
	Humanitarian    *bool       `xml:"-" json:"humanitarian,omitempty"`
	Type            CodeAttr    `xml:"transaction-type" json:"type"`
	Date            ISODate     `xml:"transaction-date" json:"date"`
	Value           Value       `xml:"value" json:"value"`
	Description     TextBlock   `xml:"description" json:"description"`
	Provider        ProviderOrg `xml:"provider-org" json:"provider"`
	Receiver        ReceiverOrg `xml:"receiver-org" json:"receiver"`
	DisbChannel     CodeAttr    `xml:"disbursement-channel" json:"disbursement_channel"`
	FlowType        CodeAttr    `xml:"flow-type" json:"flow_type"`
	FinanceType     CodeAttr    `xml:"finance-type" json:"finance_type"`
	AidType         AidType     `xml:"aid-type" json:"aid_type"`
	TiedStatus      CodeAttr    `xml:"tied-status" json:"tied_status"`
}

// AidType is an aid-type code with its vocabulary.
type AidType struct {
	Code       string `xml:"code,attr" json:"code,omitempty"`
	Vocabulary string `xml:"vocabulary,attr" json:"vocabulary,omitempty"`
}

// Result is one reported result with its indicators.
type Result struct {
	Type              string      `xml:"type,attr" json:"type,omitempty"`
	RawAggregation    string      `xml:"aggregation-status,attr" json:"-"`
	AggregationStatus *bool       `xml:"-" json:"aggregation_status,omitempty"`
	Title             TextBlock   `xml:"title" json:"title"`
	Description       TextBlock   `xml:"description" json:"description"`
	Indicators        []Indicator `xml:"indicator" json:"indicators,omitempty"`
}

// Indicator measures one dimension of a result.
type Indicator struct {
	Measure      string             `xml:"measure,attr" json:"measure,omitempty"`
	RawAscending string             `xml:"ascending,attr" json:"-"`
	Ascending    *bool              `xml:"-" json:"ascending,omitempty"`
	Title        TextBlock          `xml:"title" json:"title"`
	Description  TextBlock          `xml:"description" json:"description"`
	Baseline     *IndicatorBaseline `xml:"baseline" json:"baseline,omitempty"`
	Periods      []IndicatorPeriod  `xml:"period" json:"periods,omitempty"`
}

// IndicatorBaseline is the starting point an indicator is measured from.
type IndicatorBaseline struct {
	Year    string    `xml:"year,attr" json:"year,omitempty"`
	Value   string    `xml:"value,attr" json:"value,omitempty"`
	Comment TextBlock `xml:"comment" json:"comment"`
}

// IndicatorPeriod is one reporting period with target and actual values.
type IndicatorPeriod struct {
	PeriodStart ISODate         `xml:"period-start" json:"period_start"`
	PeriodEnd   ISODate         `xml:"period-end" json:"period_end"`
	Target      IndicatorMetric `xml:"target" json:"target"`
	Actual      IndicatorMetric `xml:"actual" json:"actual"`
}

// IndicatorMetric is a target or actual value for an indicator period.
type IndicatorMetric struct {
	Value string `xml:"value,attr" json:"value,omitempty"`
}

// Contact is one contact-info block.
type Contact struct {
	Type         string    `xml:"type,attr" json:"type,omitempty"`
	Organisation TextBlock `xml:"organisation" json:"organisation"`
	PersonName   TextBlock `xml:"person-name" json:"person_name"`
	Telephone    string    `xml:"telephone" json:"telephone,omitempty"`
	Email        string    `xml:"email" json:"email,omitempty"`
	Website      string    `xml:"website" json:"website,omitempty"`
}

// RelatedActivity links to another activity by identifier.
// Type codes: 1 parent, 2 child, 3 sibling, 4 co-funded, 5 third party.
type RelatedActivity struct {
	Ref  string `xml:"ref,attr" json:"ref"`
	Type string `xml:"type,attr" json:"type,omitempty"`
}

// Location is one geographic location row.
type Location struct {
	Ref         string     `xml:"ref,attr" json:"ref,omitempty"`
	Reach       CodeAttr   `xml:"location-reach" json:"reach"`
	ID          LocationID `xml:"location-id" json:"id"`
	Name        TextBlock  `xml:"name" json:"name"`
	Description TextBlock  `xml:"description" json:"description"`
	Point       *Point     `xml:"point" json:"point,omitempty"`
	Exactness   CodeAttr   `xml:"exactness" json:"exactness"`
	Class       CodeAttr   `xml:"location-class" json:"class"`
}

// LocationID is a gazetteer reference for a location.
type LocationID struct {
	Vocabulary string `xml:"vocabulary,attr" json:"vocabulary,omitempty"`
	Code       string `xml:"code,attr" json:"code,omitempty"`
}

// Point is a geographic coordinate pair in "lat lng" form.
type Point struct {
	SRSName string `xml:"srsName,attr" json:"srs_name,omitempty"`
	Pos     string `xml:"pos" json:"pos,omitempty"`
}

// BudgetTotal sums all parseable budget values. Currency is taken from
// the first budget carrying one, falling back to the activity default.
// Returns false when no budget row has a parseable amount.
func (a *Activity) BudgetTotal() (float64, string, bool) {
	var total float64
	var currency string
	found := false
	for _, b := range a.Budgets {
		if b.Value.Amount == nil {
			continue
		}
		total += *b.Value.Amount
		found = true
		if currency == "" && b.Value.Currency != "" {
			currency = b.Value.Currency
		}
	}
	if currency == "" {
		currency = a.DefaultCurrency
	}
	return total, currency, found
}
