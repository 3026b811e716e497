package parser

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/normalize"
)

// ParseFull fully parses one activity's nested structures. Re-parsing the
// same document and index always yields the same structure.
func (d *Document) ParseFull(index int) (*iati.Activity, error) {
	raw, err := d.activity(index)
	if err != nil {
		return nil, err
	}

	var activity iati.Activity
	if err := xml.NewDecoder(bytes.NewReader(raw)).Decode(&activity); err != nil {
		return nil, errors.NewParseError(index, "unparseable activity", err)
	}

	finalize(&activity)
	return &activity, nil
}

// finalize converts raw attribute captures into typed values: monetary
// amounts from element text and boolean flags through the normalizer, so
// an explicit false survives and garbage becomes absent.
func finalize(activity *iati.Activity) {
	activity.IATIIdentifier = strings.TrimSpace(activity.IATIIdentifier)
	activity.Humanitarian = normalize.Bool(activity.RawHumanitarian)

	for i := range activity.Budgets {
		parseAmount(&activity.Budgets[i].Value)
	}
	for i := range activity.PlannedDisbursements {
		parseAmount(&activity.PlannedDisbursements[i].Value)
	}
	for i := range activity.Transactions {
		tx := &activity.Transactions[i]
		parseAmount(&tx.Value)
		tx.Humanitarian = normalize.Bool(tx.RawHumanitarian)
	}
	for i := range activity.Results {
		res := &activity.Results[i]
		res.AggregationStatus = normalize.Bool(res.RawAggregation)
		for j := range res.Indicators {
			ind := &res.Indicators[j]
			ind.Ascending = normalize.Bool(ind.RawAscending)
		}
	}
}
