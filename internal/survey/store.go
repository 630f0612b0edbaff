// Package survey holds the session-scoped response store and the rules for
// turning a form submission into a response record.
package survey

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/pavelanni/survey/internal/model"
)

var (
	// ErrIndexOutOfRange is returned when a delete batch names a position
	// the store does not have.
	ErrIndexOutOfRange = errors.New("response index out of range")
	// ErrStaleSnapshot is returned when a delete batch was collected from a
	// snapshot the store has since moved past.
	ErrStaleSnapshot = errors.New("responses changed since they were listed")
)

// Store is the ordered collection of responses of one interactive session.
// Positions are dense and 0-based; a record has no identity beyond its index.
type Store struct {
	mu       sync.Mutex
	records  []model.Response
	revision uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot is a copy of the store contents together with the revision they
// were read at.
type Snapshot struct {
	Records  []model.Response
	Revision uint64
}

// Append adds r at the end.
func (s *Store) Append(r model.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	s.revision++
}

// All returns the records in insertion order.
func (s *Store) All() []model.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Snapshot returns the records and the current revision read together.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Records: slices.Clone(s.records), Revision: s.revision}
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Revision counts the mutations applied so far.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Delete removes the records at indices. All indices refer to the store as it
// is before this call; either every index is removed or none is.
func (s *Store) Delete(indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(indices)
}

// DeleteAt is Delete for indices collected from the snapshot taken at
// revision. If the store changed since then nothing is removed.
func (s *Store) DeleteAt(revision uint64, indices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision != s.revision {
		return fmt.Errorf("%w: listed at revision %d, now %d", ErrStaleSnapshot, revision, s.revision)
	}
	return s.deleteLocked(indices)
}

func (s *Store) deleteLocked(indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	batch := slices.Clone(indices)
	slices.Sort(batch)
	batch = slices.Compact(batch)
	if batch[0] < 0 || batch[len(batch)-1] >= len(s.records) {
		return fmt.Errorf("%w: batch %v, store holds %d", ErrIndexOutOfRange, indices, len(s.records))
	}

	// Highest first so earlier removals never shift a pending position.
	for i := len(batch) - 1; i >= 0; i-- {
		s.records = slices.Delete(s.records, batch[i], batch[i]+1)
	}
	s.revision++
	return nil
}
