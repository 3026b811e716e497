package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/normalize"
)

// field is one normalized sub-attribute of a composite row.
type field struct {
	name  string
	value string
}

// row is one composite entity flattened to its natural key and sub-fields.
// Rows from the same builder always carry the same sub-fields in the same
// order, so matched rows can be compared positionally.
type row struct {
	key    string
	fields []field
}

// rowSet matches imported rows against stored rows by natural key and
// appends one RowDiff per row. Unmatched imported rows are NewOnly,
// unmatched stored rows are CurrentOnly; matched rows are diffed
// sub-field by sub-field and are Identical only when every sub-field is.
func (d *Diff) rowSet(collection string, imported, stored []row) {
	matched := make([]int, len(imported)) // stored index per imported row, -1 = new
	taken := make([]bool, len(stored))

	importedKeys := map[string]bool{}
	for i, imp := range imported {
		if importedKeys[imp.key] {
			d.Warnings = append(d.Warnings, fmt.Sprintf("%s: two imported rows share natural key %q; matching the first deterministically", collection, imp.key))
		}
		importedKeys[imp.key] = true

		matched[i] = -1
		for j, cur := range stored {
			if !taken[j] && cur.key == imp.key {
				matched[i] = j
				taken[j] = true
				break
			}
		}
	}

	for i, imp := range imported {
		j := matched[i]
		if j < 0 {
			d.Rows = append(d.Rows, newOnlyRow(collection, imp, i))
			continue
		}
		d.Rows = append(d.Rows, matchedRow(collection, imp, stored[j], i, j))
	}

	for j, cur := range stored {
		if !taken[j] {
			d.Rows = append(d.Rows, currentOnlyRow(collection, cur, j))
		}
	}
}

// matchedRow diffs two rows that share a natural key.
func matchedRow(collection string, imp, cur row, importedIndex, storedIndex int) RowDiff {
	rd := RowDiff{
		Collection:    collection,
		Key:           imp.key,
		ImportedIndex: importedIndex,
		StoredIndex:   storedIndex,
		State:         Identical,
	}
	for k, f := range imp.fields {
		fd := compare(f.name, f.value, cur.fields[k].value)
		rd.Fields = append(rd.Fields, fd)
		if fd.State != Identical {
			// One differing sub-field conflicts the whole row. Headline
			// values matching is not enough.
			rd.State = Conflicting
		}
	}
	rd.AutoSelect = rd.State == Identical
	return rd
}

func newOnlyRow(collection string, imp row, importedIndex int) RowDiff {
	rd := RowDiff{
		Collection:    collection,
		Key:           imp.key,
		ImportedIndex: importedIndex,
		StoredIndex:   -1,
		State:         NewOnly,
	}
	for _, f := range imp.fields {
		rd.Fields = append(rd.Fields, FieldDiff{FieldName: f.name, Imported: f.value, State: NewOnly})
	}
	return rd
}

func currentOnlyRow(collection string, cur row, storedIndex int) RowDiff {
	rd := RowDiff{
		Collection:    collection,
		Key:           cur.key,
		ImportedIndex: -1,
		StoredIndex:   storedIndex,
		State:         CurrentOnly,
	}
	for _, f := range cur.fields {
		rd.Fields = append(rd.Fields, FieldDiff{FieldName: f.name, Current: f.value, State: CurrentOnly})
	}
	return rd
}

// naturalKey joins key parts with a separator that cannot occur in
// normalized values of dates and amounts.
func naturalKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// rawAmount renders just the numeric amount for natural keys, "" when
// absent.
func rawAmount(v iati.Value) string {
	if v.Amount == nil {
		return ""
	}
	return strconv.FormatFloat(*v.Amount, 'f', -1, 64)
}

// disbursementRows flattens planned disbursements. Natural key:
// period-start + period-end + amount. The 13 sub-fields are the hard
// requirement of the comparison: type, both periods, value, value-date,
// and the full provider and receiver organisation blocks.
func disbursementRows(list []iati.PlannedDisbursement, preferred language.Tag) []row {
	rows := make([]row, 0, len(list))
	for _, pd := range list {
		rows = append(rows, row{
			key: naturalKey(normalize.Date(pd.PeriodStart.ISODate), normalize.Date(pd.PeriodEnd.ISODate), rawAmount(pd.Value)),
			fields: []field{
				{"type", normalize.Code(pd.Type)},
				{"period_start", normalize.Date(pd.PeriodStart.ISODate)},
				{"period_end", normalize.Date(pd.PeriodEnd.ISODate)},
				{"value", amountString(pd.Value)},
				{"value_date", normalize.Date(pd.Value.ValueDate)},
				{"provider_ref", normalize.Ref(pd.Provider.Ref)},
				{"provider_name", iati.PreferredNarrative(pd.Provider.Narratives, preferred)},
				{"provider_type", normalize.Code(pd.Provider.Type)},
				{"provider_activity_id", normalize.Ref(pd.Provider.ActivityID)},
				{"receiver_ref", normalize.Ref(pd.Receiver.Ref)},
				{"receiver_name", iati.PreferredNarrative(pd.Receiver.Narratives, preferred)},
				{"receiver_type", normalize.Code(pd.Receiver.Type)},
				{"receiver_activity_id", normalize.Ref(pd.Receiver.ActivityID)},
			},
		})
	}
	return rows
}

// budgetRows flattens budget periods. Natural key mirrors disbursements.
func budgetRows(list []iati.Budget) []row {
	rows := make([]row, 0, len(list))
	for _, b := range list {
		rows = append(rows, row{
			key: naturalKey(normalize.Date(b.PeriodStart.ISODate), normalize.Date(b.PeriodEnd.ISODate), rawAmount(b.Value)),
			fields: []field{
				{"type", normalize.Code(b.Type)},
				{"status", normalize.Code(b.Status)},
				{"period_start", normalize.Date(b.PeriodStart.ISODate)},
				{"period_end", normalize.Date(b.PeriodEnd.ISODate)},
				{"value", amountString(b.Value)},
				{"value_date", normalize.Date(b.Value.ValueDate)},
			},
		})
	}
	return rows
}

// transactionRows flattens transactions. Natural key: type + date +
// amount + currency.
func transactionRows(list []iati.Transaction, preferred language.Tag) []row {
	rows := make([]row, 0, len(list))
	for _, tx := range list {
		rows = append(rows, row{
			key: naturalKey(normalize.Code(tx.Type.Code), normalize.Date(tx.Date.ISODate), rawAmount(tx.Value), normalize.Code(tx.Value.Currency)),
			fields: []field{
				{"type", normalize.Code(tx.Type.Code)},
				{"date", normalize.Date(tx.Date.ISODate)},
				{"value", amountString(tx.Value)},
				{"value_date", normalize.Date(tx.Value.ValueDate)},
				{"description", tx.Description.DisplayText(preferred)},
				{"provider_ref", normalize.Ref(tx.Provider.Ref)},
				{"provider_name", iati.PreferredNarrative(tx.Provider.Narratives, preferred)},
				{"provider_type", normalize.Code(tx.Provider.Type)},
				{"provider_activity_id", normalize.Ref(tx.Provider.ActivityID)},
				{"receiver_ref", normalize.Ref(tx.Receiver.Ref)},
				{"receiver_name", iati.PreferredNarrative(tx.Receiver.Narratives, preferred)},
				{"receiver_type", normalize.Code(tx.Receiver.Type)},
				{"receiver_activity_id", normalize.Ref(tx.Receiver.ActivityID)},
				{"disbursement_channel", normalize.Code(tx.DisbChannel.Code)},
				{"flow_type", normalize.Code(tx.FlowType.Code)},
				{"finance_type", normalize.Code(tx.FinanceType.Code)},
				{"aid_type", normalize.Code(tx.AidType.Code)},
				{"tied_status", normalize.Code(tx.TiedStatus.Code)},
				{"humanitarian", boolString(tx.Humanitarian)},
			},
		})
	}
	return rows
}

// sectorRows flattens sector classifications. Natural key: vocabulary +
// code.
func sectorRows(list []iati.Sector, preferred language.Tag) []row {
	rows := make([]row, 0, len(list))
	for _, s := range list {
		rows = append(rows, row{
			key: naturalKey(normalize.Code(s.Vocabulary), normalize.Code(s.Code)),
			fields: []field{
				{"vocabulary", normalize.Code(s.Vocabulary)},
				{"code", normalize.Code(s.Code)},
				{"percentage", normalize.Code(s.Percentage)},
				{"name", iati.PreferredNarrative(s.Narratives, preferred)},
			},
		})
	}
	return rows
}

// relatedRows flattens related-activity references. Natural key: ref.
func relatedRows(list []iati.RelatedActivity) []row {
	rows := make([]row, 0, len(list))
	for _, ra := range list {
		rows = append(rows, row{
			key: normalize.Ref(ra.Ref),
			fields: []field{
				{"ref", normalize.Ref(ra.Ref)},
				{"type", normalize.Code(ra.Type)},
			},
		})
	}
	return rows
}
