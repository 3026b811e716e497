package importer

import (
	"context"
	"fmt"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/logging"
	"github.com/openaid/aidsync/pkg/reconcile"
	"github.com/openaid/aidsync/pkg/store"
)

// executeUpdate applies the selected fields and rows of one candidate to
// one stored activity. Unselected stored data is untouched; child rows
// are replaced one confirmed row at a time, never as a blind
// delete-all-then-insert-all.
func (imp *Importer) executeUpdate(ctx context.Context, sel Selection, mode UpdateCurrent) (*ImportResult, error) {
	result := newResult()
	j := &job{candidate: sel.Candidates[0], state: StateValidating, key: fmt.Sprintf("candidate[%d]", sel.Candidates[0].Index)}

	imp.prepareUpdate(sel, j)
	if j.state == StateFailed {
		return finishUpdate(result, j, nil), nil
	}

	current, err := imp.store.GetActivity(ctx, mode.TargetID)
	if err != nil {
		j.fail(err)
		return finishUpdate(result, j, nil), nil
	}

	diff := reconcile.Activity(j.activity, current, imp.preferred)
	plan := imp.planUpdate(diff, j)

	j.state = StateWriting
	err = imp.store.WithTx(ctx, func(tx store.Tx) error {
		return applyPlan(ctx, tx, mode.TargetID, j.activity, current, plan)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("iati_identifier", j.key).Msg("update failed")
		j.fail(err)
		return finishUpdate(result, j, nil), nil
	}
	j.state = StateCommitted
	logging.Ctx(ctx).Info().Str("iati_identifier", j.key).
		Int("fields", len(plan.updated)).Msg("activity updated")

	imp.verifyUpdate(ctx, mode.TargetID, j, plan)
	return finishUpdate(result, j, plan.updated), nil
}

// prepareUpdate parses and normalizes the candidate. Unlike creates, an
// unknown activity status is not fatal here: the status field is dropped
// with a diagnostic and everything else still applies.
func (imp *Importer) prepareUpdate(sel Selection, j *job) {
	activity, err := sel.Document.ParseFull(j.candidate.Index)
	if err != nil {
		j.fail(err)
		return
	}
	j.diags = append(j.diags, normalizeActivity(activity)...)
	j.key = candidateKey(j.candidate.Index, activity.IATIIdentifier)
	j.diags = append(j.diags, validateCodes(activity)...)
	if ok, reason := validateStatus(activity); !ok {
		j.diags = append(j.diags, fmt.Sprintf("activity_status %q dropped: %s", activity.Status.Code, reason))
		activity.Status.Code = ""
	}
	j.activity = activity
}

// updatePlan is the resolved write set for one update: which scalar
// columns to overwrite and which rows to insert or replace.
type updatePlan struct {
	scalars  []string
	inserts  []*reconcile.RowDiff
	replaces []*reconcile.RowDiff
	updated  []string
}

// planUpdate resolves the selection paths against the diff. Identical
// selections are no-ops; CurrentOnly rows are informational and a
// selection naming one is reported, not applied.
func (imp *Importer) planUpdate(diff *reconcile.Diff, j *job) *updatePlan {
	plan := &updatePlan{}
	for _, path := range j.candidate.Paths {
		if store.IsScalarField(path) {
			fd := diff.Scalar(path)
			if fd == nil || fd.State == reconcile.Identical {
				continue
			}
			plan.scalars = append(plan.scalars, path)
			plan.updated = append(plan.updated, path)
			continue
		}

		rd := diff.Row(path)
		if rd == nil {
			j.diags = append(j.diags, fmt.Sprintf("selection %q matches no field or row; skipped", path))
			continue
		}
		switch rd.State {
		case reconcile.Identical:
			// Auto-selected rows are already in the store.
		case reconcile.NewOnly:
			plan.inserts = append(plan.inserts, rd)
			plan.updated = append(plan.updated, path)
		case reconcile.Conflicting:
			plan.replaces = append(plan.replaces, rd)
			plan.updated = append(plan.updated, path)
		case reconcile.CurrentOnly:
			j.diags = append(j.diags, fmt.Sprintf("selection %q exists only in the store; kept as is", path))
		}
	}
	return plan
}

// applyPlan writes the resolved plan in one transaction: scalar columns
// first, then row replacements (delete stored, insert imported), then
// plain inserts.
func applyPlan(ctx context.Context, tx store.Tx, targetID int64, imported, current *iati.Activity, plan *updatePlan) error {
	if len(plan.scalars) > 0 {
		if err := tx.UpdateActivityScalars(ctx, targetID, imported, plan.scalars); err != nil {
			return err
		}
	}
	for _, rd := range plan.replaces {
		if err := deleteRow(ctx, tx, targetID, current, rd); err != nil {
			return err
		}
		if err := insertRow(ctx, tx, targetID, imported, rd); err != nil {
			return err
		}
	}
	for _, rd := range plan.inserts {
		if err := insertRow(ctx, tx, targetID, imported, rd); err != nil {
			return err
		}
	}
	return nil
}

// verifyUpdate re-diffs the stored activity and checks every applied
// path is now Identical.
func (imp *Importer) verifyUpdate(ctx context.Context, targetID int64, j *job, plan *updatePlan) {
	stored, err := imp.store.GetActivity(ctx, targetID)
	if err != nil {
		j.diags = append(j.diags, fmt.Sprintf("idempotency check skipped: %v", err))
		return
	}
	diff := reconcile.Activity(j.activity, stored, imp.preferred)
	for _, path := range plan.updated {
		if store.IsScalarField(path) {
			if fd := diff.Scalar(path); fd != nil && fd.State != reconcile.Identical {
				j.diags = append(j.diags, fmt.Sprintf("field %q still differs after write", path))
			}
			continue
		}
		if rd := diff.Row(path); rd != nil && rd.State != reconcile.Identical {
			j.diags = append(j.diags, fmt.Sprintf("row %q still differs after write", path))
		}
	}
}

// insertRow writes the imported row a RowDiff points at.
func insertRow(ctx context.Context, tx store.Tx, storedID int64, imported *iati.Activity, rd *reconcile.RowDiff) error {
	switch rd.Collection {
	case "budget":
		return tx.InsertBudget(ctx, storedID, imported.Budgets[rd.ImportedIndex])
	case "planned_disbursement":
		return tx.InsertPlannedDisbursement(ctx, storedID, imported.PlannedDisbursements[rd.ImportedIndex])
	case "transaction":
		return tx.InsertTransaction(ctx, storedID, imported.Transactions[rd.ImportedIndex])
	case "sector":
		return tx.InsertSector(ctx, storedID, imported.Sectors[rd.ImportedIndex])
	case "related_activity":
		return tx.InsertRelatedActivity(ctx, storedID, imported.RelatedActivities[rd.ImportedIndex])
	default:
		return errors.NewStoreError("insert", rd.Collection, fmt.Errorf("unknown collection"))
	}
}

// deleteRow removes the stored row a RowDiff points at, by natural key.
func deleteRow(ctx context.Context, tx store.Tx, storedID int64, current *iati.Activity, rd *reconcile.RowDiff) error {
	switch rd.Collection {
	case "budget":
		b := current.Budgets[rd.StoredIndex]
		return tx.DeleteBudget(ctx, storedID, b.PeriodStart.ISODate, b.PeriodEnd.ISODate, b.Value.Amount)
	case "planned_disbursement":
		pd := current.PlannedDisbursements[rd.StoredIndex]
		return tx.DeletePlannedDisbursement(ctx, storedID, pd.PeriodStart.ISODate, pd.PeriodEnd.ISODate, pd.Value.Amount)
	case "transaction":
		tr := current.Transactions[rd.StoredIndex]
		return tx.DeleteTransaction(ctx, storedID, tr.Type.Code, tr.Date.ISODate, tr.Value.Amount, tr.Value.Currency)
	case "sector":
		s := current.Sectors[rd.StoredIndex]
		return tx.DeleteSector(ctx, storedID, s.Vocabulary, s.Code)
	case "related_activity":
		ra := current.RelatedActivities[rd.StoredIndex]
		return tx.DeleteRelatedActivity(ctx, storedID, ra.Ref)
	default:
		return errors.NewStoreError("delete", rd.Collection, fmt.Errorf("unknown collection"))
	}
}

// finishUpdate folds the single update job into a result.
func finishUpdate(result *ImportResult, j *job, updated []string) *ImportResult {
	result.States[j.key] = j.state
	if len(j.diags) > 0 {
		result.Diagnostics[j.key] = j.diags
	}
	if j.state == StateFailed {
		result.Errors[j.key] = j.err
	} else {
		result.UpdatedFields = updated
	}
	return result
}
