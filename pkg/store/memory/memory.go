// Package memory provides an in-memory Store implementation. It backs
// unit tests and dry-run previews with the same transactional semantics
// as the SQL store: each WithTx commits or rolls back as a unit, and
// identifier uniqueness is enforced on insert.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/openaid/aidsync/pkg/errors"
	"github.com/openaid/aidsync/pkg/iati"
	"github.com/openaid/aidsync/pkg/store"
)

// Store is an in-memory activity store safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	seq        int64
	activities map[int64]*iati.Activity
	ids        map[string]int64
	updated    map[int64]time.Time
	now        func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		activities: make(map[int64]*iati.Activity),
		ids:        make(map[string]int64),
		updated:    make(map[int64]time.Time),
		now:        time.Now,
	}
}

// NewWithClock creates a store with an injected clock, for tests that
// assert on last-updated timestamps.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// FindExisting implements store.Store with one pass over the index.
func (s *Store) FindExisting(_ context.Context, identifiers []string) (map[string]store.ExistingRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]store.ExistingRef)
	for _, id := range identifiers {
		if storedID, ok := s.ids[id]; ok {
			existing[id] = store.ExistingRef{StoredID: storedID, LastUpdated: s.updated[storedID]}
		}
	}
	return existing, nil
}

// GetActivity implements store.Store. The caller gets a deep copy;
// mutations never leak back into the store.
func (s *Store) GetActivity(_ context.Context, storedID int64) (*iati.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	activity, ok := s.activities[storedID]
	if !ok {
		return nil, errors.NewNotFoundError("activity", fmt.Sprintf("%d", storedID))
	}
	return clone(activity)
}

// GetByIdentifier implements store.Store.
func (s *Store) GetByIdentifier(ctx context.Context, identifier string) (*iati.Activity, error) {
	s.mu.Lock()
	storedID, ok := s.ids[identifier]
	s.mu.Unlock()
	if !ok {
		return nil, errors.NewNotFoundError("activity", identifier)
	}
	return s.GetActivity(ctx, storedID)
}

// WithTx implements store.Store. The transaction stages every mutation
// and publishes them only when fn returns nil.
func (s *Store) WithTx(_ context.Context, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:      s,
		activities: make(map[int64]*iati.Activity),
		ids:        make(map[string]int64),
		removedIDs: make(map[string]bool),
		updated:    make(map[int64]time.Time),
		results:    make(map[int64]resultRef),
		indicators: make(map[int64]indicatorRef),
	}

	if err := fn(tx); err != nil {
		return err
	}

	for identifier := range tx.removedIDs {
		delete(s.ids, identifier)
	}
	for id, a := range tx.activities {
		s.activities[id] = a
	}
	for identifier, id := range tx.ids {
		s.ids[identifier] = id
	}
	for id, ts := range tx.updated {
		s.updated[id] = ts
	}
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Len returns the number of stored activities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activities)
}

// clone deep-copies an activity through its JSON form.
func clone(a *iati.Activity) (*iati.Activity, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, errors.WrapStore("clone", "activities", err)
	}
	var out iati.Activity
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.WrapStore("clone", "activities", err)
	}
	out.StoredID = a.StoredID
	return &out, nil
}
