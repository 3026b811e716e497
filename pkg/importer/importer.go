// Package importer applies a confirmed selection to the activity store
// under one of three import modes. Each activity runs through one state
// machine (Pending, Validating, Writing, then Committed or Failed) and
// writes inside one store transaction, so a failure never leaves a
// half-written activity and never aborts the rest of a batch.
package importer

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/parser"
	"github.com/openaid/aidsync/pkg/store"
)

// DefaultWorkers caps the BulkCreate worker pool when no override is
// configured. The cap protects the store from connection exhaustion.
const DefaultWorkers = 4

// Mode selects how Execute writes candidates. Exactly one of the three
// variants is passed; cardinality is enforced at the Execute boundary.
type Mode interface {
	modeName() string
}

// UpdateCurrent writes only the selected fields and rows onto one stored
// activity. Requires exactly one candidate.
type UpdateCurrent struct {
	TargetID int64
}

func (UpdateCurrent) modeName() string { return "update_current" }

// CreateNew inserts exactly one candidate as a new activity.
type CreateNew struct{}

func (CreateNew) modeName() string { return "create_new" }

// BulkCreate inserts one or more candidates, each in its own transaction,
// in parallel across a bounded worker pool.
type BulkCreate struct{}

func (BulkCreate) modeName() string { return "bulk_create" }

// Candidate names one activity of the document by index, plus the
// selection paths confirmed for it. Paths are scalar field names and row
// paths of the form collection[key]; create modes write the whole
// activity and ignore Paths.
type Candidate struct {
	Index int
	Paths []string
}

// Selection is the confirmed input to Execute: the parsed document and
// the candidates to write.
type Selection struct {
	Document   *parser.Document
	Candidates []Candidate
}

// State is one activity's position in the import state machine.
type State string

// Import states, in order. Failed and Committed are terminal.
const (
	StatePending    State = "pending"
	StateValidating State = "validating"
	StateWriting    State = "writing"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

// ImportResult reports the outcome per candidate. Partial success is
// first-class: created, updated, and failed candidates coexist, each
// failure carrying a specific reason keyed by identifier.
type ImportResult struct {
	CreatedCount int
	CreatedIDs   []int64

	// UpdatedFields lists the field names actually changed; populated by
	// UpdateCurrent only.
	UpdatedFields []string

	States      map[string]State
	Errors      map[string]error
	Diagnostics map[string][]string
}

func newResult() *ImportResult {
	return &ImportResult{
		States:      map[string]State{},
		Errors:      map[string]error{},
		Diagnostics: map[string][]string{},
	}
}

// FailedCount returns the number of candidates that ended Failed.
func (r *ImportResult) FailedCount() int {
	return len(r.Errors)
}

// Importer writes confirmed selections to one store.
type Importer struct {
	store     store.Store
	preferred language.Tag
	workers   int
}

// Option configures an Importer.
type Option func(*Importer)

// WithWorkers overrides the BulkCreate worker cap.
func WithWorkers(n int) Option {
	return func(imp *Importer) {
		if n > 0 {
			imp.workers = n
		}
	}
}

// WithPreferredLanguage sets the narrative display language used when
// re-diffing for idempotency verification.
func WithPreferredLanguage(tag language.Tag) Option {
	return func(imp *Importer) { imp.preferred = tag }
}

// New returns an Importer over st.
func New(st store.Store, opts ...Option) *Importer {
	imp := &Importer{
		store:     st,
		preferred: language.English,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Execute applies the selection under the given mode. Per-candidate
// failures are reported inside the result; the returned error is
// reserved for invalid input at the boundary.
func (imp *Importer) Execute(ctx context.Context, sel Selection, mode Mode) (*ImportResult, error) {
	if sel.Document == nil {
		return nil, fmt.Errorf("%w: selection carries no document", errors.ErrInvalidInput)
	}
	switch m := mode.(type) {
	case UpdateCurrent:
		if len(sel.Candidates) != 1 {
			return nil, fmt.Errorf("%w: update_current requires exactly one candidate, got %d", errors.ErrInvalidInput, len(sel.Candidates))
		}
		return imp.executeUpdate(ctx, sel, m)
	case CreateNew:
		if len(sel.Candidates) != 1 {
			return nil, fmt.Errorf("%w: create_new requires exactly one candidate, got %d", errors.ErrInvalidInput, len(sel.Candidates))
		}
		return imp.executeCreate(ctx, sel)
	case BulkCreate:
		if len(sel.Candidates) == 0 {
			return nil, fmt.Errorf("%w: bulk_create requires at least one candidate", errors.ErrInvalidInput)
		}
		return imp.executeCreate(ctx, sel)
	default:
		return nil, fmt.Errorf("%w: unknown import mode", errors.ErrInvalidInput)
	}
}

// candidateKey keys result maps by identifier, falling back to the
// document position for identifier-less activities.
func candidateKey(index int, identifier string) string {
	if identifier != "" {
		return identifier
	}
	return fmt.Sprintf("candidate[%d]", index)
}
