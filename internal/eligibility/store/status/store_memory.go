// Package status persists the per-(customer, target) eligibility record.
package status

import (
	"context"
	"sort"
	"sync"
	"time"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// MemoryStore is the in-memory StatusStore used by tests and dependency-free
// development. The mutex serializes upserts of the same pair, which is what
// makes transition detection race-safe.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]*eligibility.Status
}

// NewMemory returns an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*eligibility.Status)}
}

func rowKey(customerID domain.CustomerID, target domain.Target) string {
	return customerID.String() + "|" + target.String()
}

// Get returns a copy of the stored status, or nil when absent.
func (s *MemoryStore) Get(_ context.Context, customerID domain.CustomerID, target domain.Target) (*eligibility.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[rowKey(customerID, target)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

// List returns every status for a customer, accounts before services, codes
// ordered.
func (s *MemoryStore) List(_ context.Context, customerID domain.CustomerID) ([]eligibility.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []eligibility.Status
	for _, row := range s.rows {
		if row.CustomerID == customerID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target.Type != out[j].Target.Type {
			return out[i].Target.Type == domain.TargetAccount
		}
		return out[i].Target.Code < out[j].Target.Code
	})
	return out, nil
}

// Upsert creates or refreshes the record and computes the transition under
// the store lock.
func (s *MemoryStore) Upsert(_ context.Context, req eligibility.UpsertRequest) (*eligibility.Status, eligibility.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rowKey(req.CustomerID, req.Target)
	row, exists := s.rows[key]

	var transition eligibility.Transition
	if !exists {
		row = &eligibility.Status{
			CustomerID:   req.CustomerID,
			Target:       req.Target,
			AutoActivate: req.AutoActivate,
			CreatedAt:    req.EvaluatedAt,
		}
		s.rows[key] = row
	} else {
		prevEligible := row.Eligible
		prevScore := row.Score
		transition.PrevEligible = &prevEligible
		transition.PrevScore = &prevScore
	}

	wasEligible := row.Eligible
	applyResult(row, req.Result, req.EvaluatedAt)

	transition.BecameEligible = !wasEligible && row.Eligible
	transition.BecameIneligible = wasEligible && !row.Eligible
	if transition.BecameEligible {
		since := req.EvaluatedAt
		row.EligibleSince = &since
	}

	cp := *row
	return &cp, transition, nil
}

// applyResult refreshes the scorer-owned fields. EligibleSince and
// ActivatedAt are managed by the callers' transition rules, not here.
func applyResult(row *eligibility.Status, agg eligibility.Aggregate, at time.Time) {
	row.Eligible = agg.Eligible
	row.Score = agg.Score
	row.Progress = agg.Progress
	row.Met = agg.Met
	row.Missing = agg.Missing
	row.EstimatedDays = agg.EstimatedDays
	row.LastEvaluatedAt = at
	row.UpdatedAt = at
}

// MarkActivated flips the activation flag at most once.
func (s *MemoryStore) MarkActivated(_ context.Context, customerID domain.CustomerID, target domain.Target, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[rowKey(customerID, target)]
	if !ok || row.Activated {
		return false, nil
	}
	row.Activated = true
	activatedAt := at
	row.ActivatedAt = &activatedAt
	row.UpdatedAt = at
	return true, nil
}

// ListEligibleUnactivated returns auto-activate rows awaiting activation,
// oldest eligibility first.
func (s *MemoryStore) ListEligibleUnactivated(_ context.Context, limit int) ([]eligibility.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []eligibility.Status
	for _, row := range s.rows {
		if row.Eligible && row.AutoActivate && !row.Activated {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := out[i].EligibleSince, out[j].EligibleSince
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.Before(*lj)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
