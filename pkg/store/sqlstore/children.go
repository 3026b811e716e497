package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
)

// loadChildren fills every child collection of a from its tables, in
// insertion order.
func (s *Store) loadChildren(ctx context.Context, a *iati.Activity) error {
	loaders := []func(context.Context, *iati.Activity) error{
		s.loadSectors,
		s.loadCountryBudgetItems,
		s.loadHumanitarianScopes,
		s.loadBudgets,
		s.loadPlannedDisbursements,
		s.loadTransactions,
		s.loadResults,
		s.loadContacts,
		s.loadRelatedActivities,
		s.loadLocations,
	}
	for _, load := range loaders {
		if err := load(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) childQuery(ctx context.Context, table, columns string, parentID int64) (*sql.Rows, error) {
	query := s.rebind("SELECT " + columns + " FROM " + table + " WHERE activity_id = ? ORDER BY id")
	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, errors.WrapStore("select", table, err)
	}
	return rows, nil
}

func (s *Store) loadSectors(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "sectors", "vocabulary, code, percentage, narratives", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var sec iati.Sector
		var narratives string
		if err := rows.Scan(&sec.Vocabulary, &sec.Code, &sec.Percentage, &narratives); err != nil {
			return errors.WrapStore("scan", "sectors", err)
		}
		sec.Narratives = narrativesFromJSON(narratives)
		a.Sectors = append(a.Sectors, sec)
	}
	return rows.Err()
}

func (s *Store) loadCountryBudgetItems(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "country_budget_items", "vocabulary, items", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cbi iati.CountryBudgetItems
		var items string
		if err := rows.Scan(&cbi.Vocabulary, &items); err != nil {
			return errors.WrapStore("scan", "country_budget_items", err)
		}
		if items != "" {
			if err := json.Unmarshal([]byte(items), &cbi.Items); err != nil {
				return errors.WrapStore("scan", "country_budget_items", err)
			}
		}
		a.CountryBudgetItems = append(a.CountryBudgetItems, cbi)
	}
	return rows.Err()
}

func (s *Store) loadHumanitarianScopes(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "humanitarian_scopes", "type, vocabulary, code, narratives", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var scope iati.HumanitarianScope
		var narratives string
		if err := rows.Scan(&scope.Type, &scope.Vocabulary, &scope.Code, &narratives); err != nil {
			return errors.WrapStore("scan", "humanitarian_scopes", err)
		}
		scope.Narratives = narrativesFromJSON(narratives)
		a.HumanitarianScopes = append(a.HumanitarianScopes, scope)
	}
	return rows.Err()
}

func (s *Store) loadBudgets(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "budgets",
		"type, status, period_start, period_end, amount, raw_value, currency, value_date", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var b iati.Budget
		var amount sql.NullFloat64
		if err := rows.Scan(&b.Type, &b.Status, &b.PeriodStart.ISODate, &b.PeriodEnd.ISODate,
			&amount, &b.Value.Raw, &b.Value.Currency, &b.Value.ValueDate); err != nil {
			return errors.WrapStore("scan", "budgets", err)
		}
		b.Value.Amount = nullToAmount(amount)
		a.Budgets = append(a.Budgets, b)
	}
	return rows.Err()
}

func (s *Store) loadPlannedDisbursements(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "planned_disbursements",
		`type, period_start, period_end, amount, raw_value, currency, value_date,
		provider_ref, provider_type, provider_activity_id, provider_narratives,
		receiver_ref, receiver_type, receiver_activity_id, receiver_narratives`, a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var pd iati.PlannedDisbursement
		var amount sql.NullFloat64
		var providerNarr, receiverNarr string
		if err := rows.Scan(&pd.Type, &pd.PeriodStart.ISODate, &pd.PeriodEnd.ISODate,
			&amount, &pd.Value.Raw, &pd.Value.Currency, &pd.Value.ValueDate,
			&pd.Provider.Ref, &pd.Provider.Type, &pd.Provider.ActivityID, &providerNarr,
			&pd.Receiver.Ref, &pd.Receiver.Type, &pd.Receiver.ActivityID, &receiverNarr); err != nil {
			return errors.WrapStore("scan", "planned_disbursements", err)
		}
		pd.Value.Amount = nullToAmount(amount)
		pd.Provider.Narratives = narrativesFromJSON(providerNarr)
		pd.Receiver.Narratives = narrativesFromJSON(receiverNarr)
		a.PlannedDisbursements = append(a.PlannedDisbursements, pd)
	}
	return rows.Err()
}

func (s *Store) loadTransactions(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "transactions",
		`ref, humanitarian, type, date, amount, raw_value, currency, value_date, description,
		provider_ref, provider_type, provider_activity_id, provider_narratives,
		receiver_ref, receiver_type, receiver_activity_id, receiver_narratives,
		disbursement_channel, flow_type, finance_type, aid_type_code, aid_type_vocabulary, tied_status`, a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var tr iati.Transaction
		var humanitarian sql.NullInt64
		var amount sql.NullFloat64
		var description, providerNarr, receiverNarr string
		if err := rows.Scan(&tr.Ref, &humanitarian, &tr.Type.Code, &tr.Date.ISODate,
			&amount, &tr.Value.Raw, &tr.Value.Currency, &tr.Value.ValueDate, &description,
			&tr.Provider.Ref, &tr.Provider.Type, &tr.Provider.ActivityID, &providerNarr,
			&tr.Receiver.Ref, &tr.Receiver.Type, &tr.Receiver.ActivityID, &receiverNarr,
			&tr.DisbChannel.Code, &tr.FlowType.Code, &tr.FinanceType.Code,
			&tr.AidType.Code, &tr.AidType.Vocabulary, &tr.TiedStatus.Code); err != nil {
			return errors.WrapStore("scan", "transactions", err)
		}
		tr.Humanitarian = nullToBool(humanitarian)
		tr.Value.Amount = nullToAmount(amount)
		tr.Description = textFromJSON(description)
		tr.Provider.Narratives = narrativesFromJSON(providerNarr)
		tr.Receiver.Narratives = narrativesFromJSON(receiverNarr)
		a.Transactions = append(a.Transactions, tr)
	}
	return rows.Err()
}

func (s *Store) loadResults(ctx context.Context, a *iati.Activity) error {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT id, type, aggregation_status, title, description FROM results WHERE activity_id = ? ORDER BY id"),
		a.StoredID)
	if err != nil {
		return errors.WrapStore("select", "results", err)
	}
	defer rows.Close()
	var resultIDs []int64
	for rows.Next() {
		var res iati.Result
		var resultID int64
		var aggregation sql.NullInt64
		var title, description string
		if err := rows.Scan(&resultID, &res.Type, &aggregation, &title, &description); err != nil {
			return errors.WrapStore("scan", "results", err)
		}
		res.AggregationStatus = nullToBool(aggregation)
		res.Title = textFromJSON(title)
		res.Description = textFromJSON(description)
		a.Results = append(a.Results, res)
		resultIDs = append(resultIDs, resultID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i, resultID := range resultIDs {
		if err := s.loadIndicators(ctx, resultID, &a.Results[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadIndicators(ctx context.Context, resultID int64, result *iati.Result) error {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, measure, ascending, title, description,
			baseline_year, baseline_value, baseline_comment, has_baseline
			FROM result_indicators WHERE result_id = ? ORDER BY id`),
		resultID)
	if err != nil {
		return errors.WrapStore("select", "result_indicators", err)
	}
	defer rows.Close()
	var indicatorIDs []int64
	for rows.Next() {
		var ind iati.Indicator
		var indicatorID int64
		var ascending sql.NullInt64
		var title, description, baselineYear, baselineValue, baselineComment string
		var hasBaseline int64
		if err := rows.Scan(&indicatorID, &ind.Measure, &ascending, &title, &description,
			&baselineYear, &baselineValue, &baselineComment, &hasBaseline); err != nil {
			return errors.WrapStore("scan", "result_indicators", err)
		}
		ind.Ascending = nullToBool(ascending)
		ind.Title = textFromJSON(title)
		ind.Description = textFromJSON(description)
		if hasBaseline != 0 {
			ind.Baseline = &iati.IndicatorBaseline{
				Year:    baselineYear,
				Value:   baselineValue,
				Comment: textFromJSON(baselineComment),
			}
		}
		result.Indicators = append(result.Indicators, ind)
		indicatorIDs = append(indicatorIDs, indicatorID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i, indicatorID := range indicatorIDs {
		if err := s.loadIndicatorPeriods(ctx, indicatorID, &result.Indicators[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadIndicatorPeriods(ctx context.Context, indicatorID int64, indicator *iati.Indicator) error {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT period_start, period_end, target_value, actual_value FROM indicator_periods WHERE indicator_id = ? ORDER BY id"),
		indicatorID)
	if err != nil {
		return errors.WrapStore("select", "indicator_periods", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p iati.IndicatorPeriod
		if err := rows.Scan(&p.PeriodStart.ISODate, &p.PeriodEnd.ISODate, &p.Target.Value, &p.Actual.Value); err != nil {
			return errors.WrapStore("scan", "indicator_periods", err)
		}
		indicator.Periods = append(indicator.Periods, p)
	}
	return rows.Err()
}

func (s *Store) loadContacts(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "contacts",
		"type, organisation, person_name, telephone, email, website", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var c iati.Contact
		var organisation, personName string
		if err := rows.Scan(&c.Type, &organisation, &personName, &c.Telephone, &c.Email, &c.Website); err != nil {
			return errors.WrapStore("scan", "contacts", err)
		}
		c.Organisation = textFromJSON(organisation)
		c.PersonName = textFromJSON(personName)
		a.Contacts = append(a.Contacts, c)
	}
	return rows.Err()
}

func (s *Store) loadRelatedActivities(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "related_activities", "ref, type", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var rel iati.RelatedActivity
		if err := rows.Scan(&rel.Ref, &rel.Type); err != nil {
			return errors.WrapStore("scan", "related_activities", err)
		}
		a.RelatedActivities = append(a.RelatedActivities, rel)
	}
	return rows.Err()
}

func (s *Store) loadLocations(ctx context.Context, a *iati.Activity) error {
	rows, err := s.childQuery(ctx, "locations",
		"ref, reach, gazetteer_vocabulary, gazetteer_code, name, description, srs_name, pos, exactness, class", a.StoredID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var loc iati.Location
		var name, description, srsName, pos string
		if err := rows.Scan(&loc.Ref, &loc.Reach.Code, &loc.ID.Vocabulary, &loc.ID.Code,
			&name, &description, &srsName, &pos, &loc.Exactness.Code, &loc.Class.Code); err != nil {
			return errors.WrapStore("scan", "locations", err)
		}
		loc.Name = textFromJSON(name)
		loc.Description = textFromJSON(description)
		if srsName != "" || pos != "" {
			loc.Point = &iati.Point{SRSName: srsName, Pos: pos}
		}
		a.Locations = append(a.Locations, loc)
	}
	return rows.Err()
}
