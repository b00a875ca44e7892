//go:build integration

package status_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mosolo/internal/eligibility"
	"mosolo/internal/eligibility/store/status"
	"mosolo/pkg/domain"
	"mosolo/pkg/testutil/containers"
)

// =============================================================================
// Postgres Status Store Integration Suite
// =============================================================================

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *status.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = status.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "eligibility_status"))
}

func (s *PostgresStoreSuite) upsert(customerID domain.CustomerID, target domain.Target, eligible bool, score float64, at time.Time) (*eligibility.Status, eligibility.Transition) {
	st, tr, err := s.store.Upsert(context.Background(), eligibility.UpsertRequest{
		CustomerID: customerID,
		Target:     target,
		Result: eligibility.Aggregate{
			Eligible: eligible,
			Score:    score,
			Progress: score,
			Met:      []eligibility.ConditionResult{},
			Missing:  []eligibility.ConditionResult{},
		},
		AutoActivate: true,
		EvaluatedAt:  at,
	})
	s.Require().NoError(err)
	return st, tr
}

func (s *PostgresStoreSuite) TestUpsertLifecycle() {
	ctx := context.Background()
	customerID := domain.NewCustomerID()
	target := domain.Target{Type: domain.TargetService, Code: domain.ServiceMopao}

	s.Run("unknown pair reads as nil", func() {
		st, err := s.store.Get(ctx, customerID, target)
		s.Require().NoError(err)
		s.Nil(st)
	})

	s.Run("insert", func() {
		st, tr := s.upsert(customerID, target, false, 40, s.now)
		s.Nil(tr.PrevEligible)
		s.False(tr.BecameEligible)
		s.False(st.Eligible)
		s.Equal(40.0, st.Score)
	})

	s.Run("flip to eligible sets eligibleSince", func() {
		st, tr := s.upsert(customerID, target, true, 100, s.now.Add(time.Hour))
		s.True(tr.BecameEligible)
		s.Require().NotNil(tr.PrevScore)
		s.Equal(40.0, *tr.PrevScore)
		s.Require().NotNil(st.EligibleSince)
		s.True(st.EligibleSince.Equal(s.now.Add(time.Hour)))
	})

	s.Run("downgrade preserves eligibleSince", func() {
		st, tr := s.upsert(customerID, target, false, 20, s.now.Add(2*time.Hour))
		s.True(tr.BecameIneligible)
		s.Require().NotNil(st.EligibleSince)
		s.True(st.EligibleSince.Equal(s.now.Add(time.Hour)))
	})

	s.Run("round-trips through Get", func() {
		st, err := s.store.Get(ctx, customerID, target)
		s.Require().NoError(err)
		s.Require().NotNil(st)
		s.Equal(customerID, st.CustomerID)
		s.Equal(target, st.Target)
		s.Equal(20.0, st.Score)
		s.NotNil(st.Met)
		s.NotNil(st.Missing)
	})
}

func (s *PostgresStoreSuite) TestConditionResultsRoundTrip() {
	ctx := context.Background()
	customerID := domain.NewCustomerID()
	target := domain.Target{Type: domain.TargetAccount, Code: domain.AccountS02}

	amount := 100.0
	distance := 60.0
	current := eligibility.Amount(40, "USD")
	_, _, err := s.store.Upsert(ctx, eligibility.UpsertRequest{
		CustomerID: customerID,
		Target:     target,
		Result: eligibility.Aggregate{
			Score: 0,
			Met:   []eligibility.ConditionResult{},
			Missing: []eligibility.ConditionResult{{
				Key:      "balance:S01:USD",
				Met:      false,
				Current:  &current,
				Required: eligibility.RequiredValue{Amount: &amount, Currency: "USD"},
				Distance: &distance,
			}},
		},
		EvaluatedAt: s.now,
	})
	s.Require().NoError(err)

	st, err := s.store.Get(ctx, customerID, target)
	s.Require().NoError(err)
	s.Require().Len(st.Missing, 1)
	s.Equal("balance:S01:USD", st.Missing[0].Key)
	s.Require().NotNil(st.Missing[0].Distance)
	s.Equal(60.0, *st.Missing[0].Distance)
	s.Require().NotNil(st.Missing[0].Current)
	s.Equal(40.0, st.Missing[0].Current.Number)
}

func (s *PostgresStoreSuite) TestConcurrentUpsertsObserveOneFlip() {
	customerID := domain.NewCustomerID()
	target := domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe}

	const goroutines = 10
	var wg sync.WaitGroup
	var flips atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, tr, err := s.store.Upsert(context.Background(), eligibility.UpsertRequest{
				CustomerID:  customerID,
				Target:      target,
				Result:      eligibility.Aggregate{Eligible: true, Score: 100, Progress: 100, Met: []eligibility.ConditionResult{}, Missing: []eligibility.ConditionResult{}},
				EvaluatedAt: s.now,
			})
			s.NoError(err)
			if tr.BecameEligible {
				flips.Add(1)
			}
		}()
	}
	wg.Wait()

	// The insert-or-update race resolves to exactly one observed transition.
	s.Equal(int32(1), flips.Load())
}

func (s *PostgresStoreSuite) TestMarkActivatedAtMostOnce() {
	ctx := context.Background()
	customerID := domain.NewCustomerID()
	target := domain.Target{Type: domain.TargetService, Code: domain.ServiceTelema}
	s.upsert(customerID, target, true, 100, s.now)

	const goroutines = 8
	var wg sync.WaitGroup
	var flipped atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.MarkActivated(ctx, customerID, target, s.now)
			s.NoError(err)
			if ok {
				flipped.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), flipped.Load())

	st, err := s.store.Get(ctx, customerID, target)
	s.Require().NoError(err)
	s.True(st.Activated)
	s.Require().NotNil(st.ActivatedAt)
	s.True(st.ActivatedAt.Equal(s.now))
}

func (s *PostgresStoreSuite) TestListEligibleUnactivated() {
	ctx := context.Background()
	target := domain.Target{Type: domain.TargetAccount, Code: domain.AccountS04}

	oldest := domain.NewCustomerID()
	newest := domain.NewCustomerID()
	s.upsert(oldest, target, false, 10, s.now.Add(-2*time.Hour))
	s.upsert(oldest, target, true, 100, s.now.Add(-time.Hour))
	s.upsert(newest, target, true, 100, s.now)
	s.upsert(domain.NewCustomerID(), target, false, 50, s.now)

	rows, err := s.store.ListEligibleUnactivated(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(oldest, rows[0].CustomerID)
	s.Equal(newest, rows[1].CustomerID)

	_, err = s.store.MarkActivated(ctx, oldest, target, s.now)
	s.Require().NoError(err)

	rows, err = s.store.ListEligibleUnactivated(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(newest, rows[0].CustomerID)
}
