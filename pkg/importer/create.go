package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/logging"
	"github.com/openaid/aidsync/pkg/reconcile"
	"github.com/openaid/aidsync/pkg/store"
)

// job tracks one candidate through the create state machine. Workers
// write only their own job, so no lock is needed until assembly.
type job struct {
	candidate Candidate
	key       string
	state     State
	activity  *iati.Activity
	storedID  int64
	err       error
	diags     []string
}

func (j *job) fail(err error) {
	j.state = StateFailed
	j.err = err
}

// executeCreate runs CreateNew and BulkCreate. Validation happens up
// front on the coordinating goroutine; writes fan out across the worker
// pool. One candidate's failure is recorded and the batch continues.
func (imp *Importer) executeCreate(ctx context.Context, sel Selection) (*ImportResult, error) {
	jobs := make([]*job, len(sel.Candidates))
	for i, c := range sel.Candidates {
		jobs[i] = &job{candidate: c, state: StatePending, key: fmt.Sprintf("candidate[%d]", c.Index)}
	}

	seen := map[string]int{}
	for _, j := range jobs {
		j.state = StateValidating
		imp.prepare(sel, j)
		if j.state == StateFailed {
			continue
		}
		// Two workers must never write the same identifier concurrently;
		// the second occurrence in a batch fails before the pool starts.
		if id := j.activity.IATIIdentifier; id != "" {
			if first, dup := seen[id]; dup {
				j.fail(errors.NewConflictError(id, fmt.Errorf("duplicate of candidate %d in the same batch", first)))
				continue
			}
			seen[id] = j.candidate.Index
		}
	}

	imp.runPool(ctx, jobs)
	return assemble(jobs), nil
}

// prepare parses, normalizes, and validates one candidate.
func (imp *Importer) prepare(sel Selection, j *job) {
	activity, err := sel.Document.ParseFull(j.candidate.Index)
	if err != nil {
		j.fail(err)
		return
	}
	j.diags = append(j.diags, normalizeActivity(activity)...)
	j.key = candidateKey(j.candidate.Index, activity.IATIIdentifier)
	j.diags = append(j.diags, validateCodes(activity)...)
	if ok, reason := validateStatus(activity); !ok {
		j.fail(errors.NewValidationError("activity_status", activity.Status.Code, reason))
		return
	}
	j.activity = activity
}

// runPool writes the surviving jobs across at most imp.workers
// goroutines. The context is checked between candidates only: an
// activity that has begun writing runs to completion.
func (imp *Importer) runPool(ctx context.Context, jobs []*job) {
	pending := make(chan *job)
	var wg sync.WaitGroup

	workers := imp.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range pending {
				if err := ctx.Err(); err != nil {
					j.fail(err)
					continue
				}
				imp.writeCreate(ctx, j)
			}
		}()
	}
	for _, j := range jobs {
		if j.state == StateValidating {
			pending <- j
		}
	}
	close(pending)
	wg.Wait()
}

// writeCreate inserts one activity and its children in a single store
// transaction, then verifies idempotency by re-diffing the stored copy.
func (imp *Importer) writeCreate(ctx context.Context, j *job) {
	j.state = StateWriting
	log := logging.Ctx(ctx).With().Str("iati_identifier", j.key).Logger()

	err := imp.store.WithTx(ctx, func(tx store.Tx) error {
		storedID, err := tx.InsertActivity(ctx, j.activity)
		if err != nil {
			return err
		}
		j.storedID = storedID
		return insertChildren(ctx, tx, storedID, j.activity)
	})
	if err != nil {
		log.Warn().Err(err).Msg("activity import failed")
		j.fail(err)
		return
	}
	j.state = StateCommitted
	log.Info().Int64("stored_id", j.storedID).Msg("activity created")

	imp.verifyCreate(ctx, j)
}

// verifyCreate re-reads the stored activity and diffs it against the
// written one. A fresh create must diff clean; anything left over is a
// write-path defect and is surfaced, not assumed away.
func (imp *Importer) verifyCreate(ctx context.Context, j *job) {
	stored, err := imp.store.GetActivity(ctx, j.storedID)
	if err != nil {
		j.diags = append(j.diags, fmt.Sprintf("idempotency check skipped: %v", err))
		return
	}
	diff := reconcile.Activity(j.activity, stored, imp.preferred)
	if n := diff.ChangedCount(); n > 0 {
		logging.Ctx(ctx).Warn().Str("iati_identifier", j.key).Int("changed", n).
			Msg("re-diff after create is not clean")
		j.diags = append(j.diags, fmt.Sprintf("re-diff after create reports %d changed fields", n))
	}
}

// insertChildren writes every child collection in dependency order:
// flat children first, then results with their indicators and periods.
func insertChildren(ctx context.Context, tx store.Tx, storedID int64, a *iati.Activity) error {
	for _, s := range a.Sectors {
		if err := tx.InsertSector(ctx, storedID, s); err != nil {
			return err
		}
	}
	for _, cbi := range a.CountryBudgetItems {
		if err := tx.InsertCountryBudgetItems(ctx, storedID, cbi); err != nil {
			return err
		}
	}
	for _, hs := range a.HumanitarianScopes {
		if err := tx.InsertHumanitarianScope(ctx, storedID, hs); err != nil {
			return err
		}
	}
	for _, b := range a.Budgets {
		if err := tx.InsertBudget(ctx, storedID, b); err != nil {
			return err
		}
	}
	for _, pd := range a.PlannedDisbursements {
		if err := tx.InsertPlannedDisbursement(ctx, storedID, pd); err != nil {
			return err
		}
	}
	for _, tr := range a.Transactions {
		if err := tx.InsertTransaction(ctx, storedID, tr); err != nil {
			return err
		}
	}
	for _, res := range a.Results {
		resultID, err := tx.InsertResult(ctx, storedID, res)
		if err != nil {
			return err
		}
		for _, ind := range res.Indicators {
			indicatorID, err := tx.InsertIndicator(ctx, resultID, ind)
			if err != nil {
				return err
			}
			for _, p := range ind.Periods {
				if err := tx.InsertIndicatorPeriod(ctx, indicatorID, p); err != nil {
					return err
				}
			}
		}
	}
	for _, c := range a.Contacts {
		if err := tx.InsertContact(ctx, storedID, c); err != nil {
			return err
		}
	}
	for _, ra := range a.RelatedActivities {
		if err := tx.InsertRelatedActivity(ctx, storedID, ra); err != nil {
			return err
		}
	}
	for _, loc := range a.Locations {
		if err := tx.InsertLocation(ctx, storedID, loc); err != nil {
			return err
		}
	}
	return nil
}

// assemble folds per-job outcomes into one result, in candidate order.
func assemble(jobs []*job) *ImportResult {
	result := newResult()
	for _, j := range jobs {
		result.States[j.key] = j.state
		if len(j.diags) > 0 {
			result.Diagnostics[j.key] = j.diags
		}
		switch j.state {
		case StateCommitted:
			result.CreatedCount++
			result.CreatedIDs = append(result.CreatedIDs, j.storedID)
		case StateFailed:
			result.Errors[j.key] = j.err
		}
	}
	return result
}
