// Package session drives one import end to end: load a document, preview
// its candidates against the store, diff a selected activity field by
// field, and hand the confirmed selection to the importer. Nothing is
// written until Execute is called, so a session can be abandoned freely.
package session

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/importer"
	"github.com/openaid/aidsync/pkg/logging"
	"github.com/openaid/aidsync/pkg/parser"
	"github.com/openaid/aidsync/pkg/reconcile"
	"github.com/openaid/aidsync/pkg/store"
)

// Session is one import of one document against one store.
type Session struct {
	id        string
	doc       *parser.Document
	store     store.Store
	preferred language.Tag
	workers   int
	importer  *importer.Importer

	candidates []iati.ActivityCandidate
}

// Option configures a Session.
type Option func(*Session)

// WithPreferredLanguage sets the narrative display language for
// candidate metadata and diffs.
func WithPreferredLanguage(tag language.Tag) Option {
	return func(s *Session) { s.preferred = tag }
}

// WithWorkers overrides the importer's BulkCreate worker cap.
func WithWorkers(n int) Option {
	return func(s *Session) { s.workers = n }
}

// Open parses the document from r and starts a session over st. The
// reader may come from a file, a fetched URL, or a pasted fragment;
// the session only sees the bytes.
func Open(r io.Reader, st store.Store, opts ...Option) (*Session, error) {
	doc, err := parser.Load(r)
	if err != nil {
		return nil, err
	}
	s := &Session{
		id:        uuid.NewString(),
		doc:       doc,
		store:     st,
		preferred: language.English,
	}
	for _, opt := range opts {
		opt(s)
	}
	impOpts := []importer.Option{importer.WithPreferredLanguage(s.preferred)}
	if s.workers > 0 {
		impOpts = append(impOpts, importer.WithWorkers(s.workers))
	}
	s.importer = importer.New(st, impOpts...)
	logging.Debug().Str("session_id", s.id).Int("activities", doc.Count()).Msg("session opened")
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Count returns the number of activity elements in the document.
func (s *Session) Count() int { return s.doc.Count() }

// SingleActivity reports whether the document holds exactly one
// activity. Single-activity documents skip candidate selection and go
// straight to Diff.
func (s *Session) SingleActivity() bool { return s.doc.Count() == 1 }

// Preview extracts candidate metadata for every activity and annotates
// each candidate New or Existing via one batched store lookup. Malformed
// activities are listed with their parse error, never dropped.
func (s *Session) Preview(ctx context.Context) ([]iati.ActivityCandidate, error) {
	ctx = logging.WithSessionID(ctx, s.id)
	candidates := s.doc.ParseMetadata(s.preferred)

	var identifiers []string
	for i := range candidates {
		if candidates[i].Parseable() && candidates[i].IATIIdentifier != "" {
			identifiers = append(identifiers, candidates[i].IATIIdentifier)
		}
	}
	existing, err := s.store.FindExisting(ctx, identifiers)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		ref, ok := existing[candidates[i].IATIIdentifier]
		if !ok || candidates[i].IATIIdentifier == "" {
			continue
		}
		candidates[i].Exists = true
		candidates[i].StoredID = ref.StoredID
		updated := ref.LastUpdated
		candidates[i].LastUpdated = &updated
	}

	logging.Ctx(ctx).Info().
		Int("candidates", len(candidates)).
		Int("existing", len(existing)).
		Msg("preview ready")
	s.candidates = candidates
	return candidates, nil
}

// Diff fully parses the activity at index and reconciles it against its
// stored counterpart. A New candidate diffs against nothing: every
// populated field comes back NewOnly.
func (s *Session) Diff(ctx context.Context, index int) (*reconcile.Diff, error) {
	ctx = logging.WithSessionID(ctx, s.id)
	if s.candidates == nil {
		if _, err := s.Preview(ctx); err != nil {
			return nil, err
		}
	}
	if index < 0 || index >= len(s.candidates) {
		return nil, fmt.Errorf("%w: candidate index %d out of range", errors.ErrInvalidInput, index)
	}
	candidate := s.candidates[index]
	if !candidate.Parseable() {
		return nil, errors.NewParseError(index, candidate.ParseErr, nil)
	}

	imported, err := s.doc.ParseFull(index)
	if err != nil {
		return nil, err
	}
	var current *iati.Activity
	if candidate.Exists {
		current, err = s.store.GetActivity(ctx, candidate.StoredID)
		if err != nil {
			return nil, err
		}
	}
	return reconcile.Activity(imported, current, s.preferred), nil
}

// Execute hands the confirmed selection to the importer. The session's
// document is always the one executed; callers pass only the candidate
// indices and selected paths.
func (s *Session) Execute(ctx context.Context, candidates []importer.Candidate, mode importer.Mode) (*importer.ImportResult, error) {
	ctx = logging.WithSessionID(ctx, s.id)
	return s.importer.Execute(ctx, importer.Selection{Document: s.doc, Candidates: candidates}, mode)
}
