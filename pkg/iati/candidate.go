package iati

import "time"

// ActivityCandidate is the lightweight, session-scoped preview of one
// activity in an import document. Candidates are never persisted; they
// carry just enough for the selection UI plus the document position
// needed to fully parse the activity on demand.
type ActivityCandidate struct {
	// Index is the zero-based position of the activity in the source
	// document, used for the on-demand full parse.
	Index int `json:"index"`

	IATIIdentifier string `json:"iati_identifier"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ReportingOrg   string `json:"reporting_org"`
	Status         string `json:"status"`
	PlannedStart   string `json:"planned_start,omitempty"`
	PlannedEnd     string `json:"planned_end,omitempty"`

	// BudgetTotal is the sum of parseable budget values; nil when the
	// activity reports no parseable budget.
	BudgetTotal      *float64 `json:"budget_total,omitempty"`
	BudgetCurrency   string   `json:"budget_currency,omitempty"`
	TransactionCount int      `json:"transaction_count"`

	// Exists is set by the conflict check when the identifier is already
	// in the store; StoredID and LastUpdated describe the stored record.
	Exists      bool       `json:"exists"`
	StoredID    int64      `json:"stored_id,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	// ParseErr marks a malformed activity. The candidate is still listed
	// but excluded from success counts and cannot be selected for import.
	ParseErr string `json:"parse_err,omitempty"`

	// Diagnostics collects every skipped field or rejected value for this
	// candidate. Nothing is silently dropped.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Parseable reports whether the candidate survived metadata extraction
// and may be selected for full parse and import.
func (c *ActivityCandidate) Parseable() bool {
	return c.ParseErr == ""
}

// AddDiagnostic appends a diagnostic message to the candidate.
func (c *ActivityCandidate) AddDiagnostic(msg string) {
	c.Diagnostics = append(c.Diagnostics, msg)
}
