// Package memory is the in-memory evaluation log for tests and
// dependency-free development.
package memory

import (
	"context"
	"sync"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// Store appends evaluation records to a slice. Append-only: nothing here
// mutates or deletes past records.
type Store struct {
	mu   sync.Mutex
	rows []eligibility.EvaluationRecord
}

// New returns an empty in-memory evaluation log.
func New() *Store {
	return &Store{}
}

// Append stores one record.
func (s *Store) Append(_ context.Context, rec eligibility.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rec)
	return nil
}

// ListByCustomer returns the records for one customer in append order.
func (s *Store) ListByCustomer(_ context.Context, customerID domain.CustomerID) ([]eligibility.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []eligibility.EvaluationRecord
	for _, rec := range s.rows {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every record in append order. Test helper.
func (s *Store) All() []eligibility.EvaluationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]eligibility.EvaluationRecord(nil), s.rows...)
}
