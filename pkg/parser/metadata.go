package parser

import (
	"bytes"
	"encoding/xml"
	"strings"

	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/iati"
)

// metaActivity binds only the cheap shallow fields of one activity.
// Child collections beyond budgets are counted, never descended into,
// which keeps preview of very large documents responsive.
type metaActivity struct {
	DefaultCurrency string              `xml:"default-currency,attr"`
	Identifier      string              `xml:"iati-identifier"`
	Title           iati.TextBlock      `xml:"title"`
	Description     iati.TextBlock      `xml:"description"`
	ReportingOrg    iati.ReportingOrg   `xml:"reporting-org"`
	Status          iati.CodeAttr       `xml:"activity-status"`
	Dates           []iati.ActivityDate `xml:"activity-date"`
	Budgets         []iati.Budget       `xml:"budget"`
	Transactions    []struct{}          `xml:"transaction"`
}

// ParseMetadata extracts one candidate per activity. A malformed activity
// is flagged with a parse-error marker and still listed, so one bad
// activity never hides the rest of the document from preview.
func (d *Document) ParseMetadata(preferred language.Tag) []iati.ActivityCandidate {
	candidates := make([]iati.ActivityCandidate, 0, len(d.spans))

	for i := range d.spans {
		candidates = append(candidates, d.parseCandidate(i, preferred))
	}
	return candidates
}

// parseCandidate builds the candidate for one activity span.
func (d *Document) parseCandidate(index int, preferred language.Tag) iati.ActivityCandidate {
	candidate := iati.ActivityCandidate{Index: index}

	raw, err := d.activity(index)
	if err != nil {
		candidate.ParseErr = err.Error()
		return candidate
	}

	var meta metaActivity
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&meta); err != nil {
		candidate.ParseErr = "unparseable activity: " + err.Error()
		return candidate
	}

	candidate.IATIIdentifier = strings.TrimSpace(meta.Identifier)
	candidate.Title = iati.PreferredNarrative(meta.Title.Narratives, preferred)
	candidate.Description = iati.PreferredNarrative(meta.Description.Narratives, preferred)
	candidate.Status = meta.Status.Code
	candidate.TransactionCount = len(meta.Transactions)

	candidate.ReportingOrg = iati.PreferredNarrative(meta.ReportingOrg.Narratives, preferred)
	if candidate.ReportingOrg == "" {
		candidate.ReportingOrg = meta.ReportingOrg.Ref
	}

	for _, date := range meta.Dates {
		switch date.Type {
		case iati.DateTypePlannedStart:
			if candidate.PlannedStart == "" {
				candidate.PlannedStart = date.ISODate
			}
		case iati.DateTypePlannedEnd:
			if candidate.PlannedEnd == "" {
				candidate.PlannedEnd = date.ISODate
			}
		}
	}

	var total float64
	found := false
	for bi := range meta.Budgets {
		parseAmount(&meta.Budgets[bi].Value)
		if meta.Budgets[bi].Value.Amount == nil {
			if strings.TrimSpace(meta.Budgets[bi].Value.Raw) != "" {
				candidate.AddDiagnostic("budget value " + strings.TrimSpace(meta.Budgets[bi].Value.Raw) + " is not a decimal; treated as absent")
			}
			continue
		}
		total += *meta.Budgets[bi].Value.Amount
		found = true
		if candidate.BudgetCurrency == "" {
			candidate.BudgetCurrency = meta.Budgets[bi].Value.Currency
		}
	}
	if found {
		candidate.BudgetTotal = &total
		if candidate.BudgetCurrency == "" {
			candidate.BudgetCurrency = meta.DefaultCurrency
		}
	}

	return candidate
}
