package importer

import (
	"fmt"
	"strings"

	"github.com/openaid/aidsync/pkg/codelist"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/normalize"
)

// normalizeActivity runs every code, reference, and date field of the
// activity through the normalizer in place. The same pass runs before
// single-field updates and bulk writes, so behavior never diverges by
// entry point. Every non-empty reference that does not survive
// normalization is named in the returned diagnostics; a dropped value is
// reported, never swallowed.
func normalizeActivity(a *iati.Activity) []string {
	var diags []string
	ref := func(location, field string, v *string) {
		raw := strings.TrimSpace(*v)
		*v = normalize.Ref(*v)
		if *v == "" && raw != "" {
			diags = append(diags, fmt.Sprintf("%s: %s %q is not a valid identifier; treated as absent", location, field, raw))
		}
	}

	ref("activity", "iati_identifier", &a.IATIIdentifier)
	a.DefaultCurrency = normalize.Code(a.DefaultCurrency)
	a.Hierarchy = normalize.Code(a.Hierarchy)
	a.Status.Code = normalize.Code(a.Status.Code)
	ref("activity", "reporting_org_ref", &a.ReportingOrg.Ref)
	a.ReportingOrg.Type = normalize.Code(a.ReportingOrg.Type)
	for i := range a.Dates {
		a.Dates[i].ISODate = normalize.Date(a.Dates[i].ISODate)
	}
	for i := range a.Sectors {
		a.Sectors[i].Vocabulary = normalize.Code(a.Sectors[i].Vocabulary)
		a.Sectors[i].Code = normalize.Code(a.Sectors[i].Code)
		a.Sectors[i].Percentage = normalize.Code(a.Sectors[i].Percentage)
	}
	for i := range a.Budgets {
		b := &a.Budgets[i]
		b.Type = normalize.Code(b.Type)
		b.Status = normalize.Code(b.Status)
		b.PeriodStart.ISODate = normalize.Date(b.PeriodStart.ISODate)
		b.PeriodEnd.ISODate = normalize.Date(b.PeriodEnd.ISODate)
		normalizeValue(&b.Value)
	}
	for i := range a.PlannedDisbursements {
		pd := &a.PlannedDisbursements[i]
		loc := fmt.Sprintf("planned_disbursement[%d]", i)
		pd.Type = normalize.Code(pd.Type)
		pd.PeriodStart.ISODate = normalize.Date(pd.PeriodStart.ISODate)
		pd.PeriodEnd.ISODate = normalize.Date(pd.PeriodEnd.ISODate)
		normalizeValue(&pd.Value)
		pd.Provider.Type = normalize.Code(pd.Provider.Type)
		ref(loc, "provider_ref", &pd.Provider.Ref)
		ref(loc, "provider_activity_id", &pd.Provider.ActivityID)
		pd.Receiver.Type = normalize.Code(pd.Receiver.Type)
		ref(loc, "receiver_ref", &pd.Receiver.Ref)
		ref(loc, "receiver_activity_id", &pd.Receiver.ActivityID)
	}
	for i := range a.Transactions {
		tr := &a.Transactions[i]
		loc := fmt.Sprintf("transaction[%d]", i)
		tr.Type.Code = normalize.Code(tr.Type.Code)
		tr.Date.ISODate = normalize.Date(tr.Date.ISODate)
		normalizeValue(&tr.Value)
		tr.Provider.Type = normalize.Code(tr.Provider.Type)
		ref(loc, "provider_ref", &tr.Provider.Ref)
		ref(loc, "provider_activity_id", &tr.Provider.ActivityID)
		tr.Receiver.Type = normalize.Code(tr.Receiver.Type)
		ref(loc, "receiver_ref", &tr.Receiver.Ref)
		ref(loc, "receiver_activity_id", &tr.Receiver.ActivityID)
		tr.DisbChannel.Code = normalize.Code(tr.DisbChannel.Code)
		tr.FlowType.Code = normalize.Code(tr.FlowType.Code)
		tr.FinanceType.Code = normalize.Code(tr.FinanceType.Code)
		tr.AidType.Code = normalize.Code(tr.AidType.Code)
		tr.AidType.Vocabulary = normalize.Code(tr.AidType.Vocabulary)
		tr.TiedStatus.Code = normalize.Code(tr.TiedStatus.Code)
	}
	for i := range a.RelatedActivities {
		ref(fmt.Sprintf("related_activity[%d]", i), "ref", &a.RelatedActivities[i].Ref)
		a.RelatedActivities[i].Type = normalize.Code(a.RelatedActivities[i].Type)
	}
	for i := range a.HumanitarianScopes {
		a.HumanitarianScopes[i].Type = normalize.Code(a.HumanitarianScopes[i].Type)
		a.HumanitarianScopes[i].Code = normalize.Code(a.HumanitarianScopes[i].Code)
	}
	return diags
}

func normalizeValue(v *iati.Value) {
	v.Currency = normalize.Code(v.Currency)
	v.ValueDate = normalize.Date(v.ValueDate)
}

// validateCodes checks every controlled-vocabulary field against the
// embedded codelists. An invalid code blocks that one field only: it is
// dropped to absent in place and reported, and the rest of the activity
// still imports. The activity status is the one exception and is checked
// separately, since an activity cannot be created under an unknown
// lifecycle status.
func validateCodes(a *iati.Activity) []string {
	var diags []string
	check := func(location, field string, code *string) {
		if *code == "" {
			return
		}
		if ok, reason := codelist.Validate(field, *code); !ok {
			diags = append(diags, fmt.Sprintf("%s: %s %q dropped: %s", location, field, *code, reason))
			*code = ""
		}
	}

	check("activity", "organisation_type", &a.ReportingOrg.Type)
	for i := range a.Sectors {
		check(fmt.Sprintf("sector[%d]", i), "sector_vocabulary", &a.Sectors[i].Vocabulary)
	}
	for i := range a.Budgets {
		check(fmt.Sprintf("budget[%d]", i), "budget_type", &a.Budgets[i].Type)
		check(fmt.Sprintf("budget[%d]", i), "budget_status", &a.Budgets[i].Status)
	}
	for i := range a.PlannedDisbursements {
		pd := &a.PlannedDisbursements[i]
		loc := fmt.Sprintf("planned_disbursement[%d]", i)
		check(loc, "budget_type", &pd.Type)
		check(loc, "organisation_type", &pd.Provider.Type)
		check(loc, "organisation_type", &pd.Receiver.Type)
	}
	for i := range a.Transactions {
		tr := &a.Transactions[i]
		loc := fmt.Sprintf("transaction[%d]", i)
		check(loc, "transaction_type", &tr.Type.Code)
		check(loc, "disbursement_channel", &tr.DisbChannel.Code)
		check(loc, "flow_type", &tr.FlowType.Code)
		check(loc, "finance_type", &tr.FinanceType.Code)
		check(loc, "aid_type", &tr.AidType.Code)
		check(loc, "tied_status", &tr.TiedStatus.Code)
		check(loc, "organisation_type", &tr.Provider.Type)
		check(loc, "organisation_type", &tr.Receiver.Type)
	}
	for i := range a.RelatedActivities {
		check(fmt.Sprintf("related_activity[%d]", i), "related_activity_type", &a.RelatedActivities[i].Type)
	}
	return diags
}

// validateStatus checks the activity status code. Returns ok=false with
// the codelist reason when the status is present but unknown.
func validateStatus(a *iati.Activity) (bool, string) {
	if a.Status.Code == "" {
		return true, ""
	}
	return codelist.Validate("activity_status", a.Status.Code)
}
