//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"mosolo/internal/notification"
	"mosolo/internal/notification/store"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
	"mosolo/pkg/testutil/containers"
)

// =============================================================================
// Postgres Notification Store Integration Suite
// =============================================================================

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
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
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "notifications"))
}

func (s *PostgresStoreSuite) insert(customerID domain.CustomerID, scheduledFor time.Time) notification.Notification {
	n := notification.Notification{
		ID:         domain.NewNotificationID(),
		CustomerID: customerID,
		Type:       notification.TypeCelebration,
		Target:     domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe},
		Title:      "Bombé débloqué !",
		Body:       "Félicitations, vous êtes maintenant éligible à Bombé.",

		ScheduledFor: scheduledFor,
		CreatedAt:    scheduledFor,
	}
	s.Require().NoError(s.store.Insert(context.Background(), n))
	return n
}

func (s *PostgresStoreSuite) TestInsertAndGet() {
	n := s.insert(domain.NewCustomerID(), s.now)

	got, err := s.store.Get(context.Background(), n.ID)
	s.Require().NoError(err)
	s.Equal(n.CustomerID, got.CustomerID)
	s.Equal(notification.TypeCelebration, got.Type)
	s.Equal(n.Title, got.Title)
	s.False(got.IsRead)
	s.Zero(got.ShownCount)

	s.Run("unknown id is not found", func() {
		_, err := s.store.Get(context.Background(), domain.NewNotificationID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PostgresStoreSuite) TestListActiveRecordsDisplay() {
	ctx := context.Background()
	customerID := domain.NewCustomerID()
	n := s.insert(customerID, s.now)
	s.insert(customerID, s.now.Add(time.Hour)) // scheduled in the future
	s.insert(domain.NewCustomerID(), s.now)    // someone else's

	feed, err := s.store.ListActive(ctx, customerID, s.now)
	s.Require().NoError(err)
	s.Require().Len(feed, 1)
	s.Equal(n.ID, feed[0].ID)
	s.Equal(1, feed[0].ShownCount)
	s.Require().NotNil(feed[0].LastShownAt)

	s.Run("repeat display bumps the counter", func() {
		feed, err := s.store.ListActive(ctx, customerID, s.now)
		s.Require().NoError(err)
		s.Require().Len(feed, 1)
		s.Equal(2, feed[0].ShownCount)
	})

	s.Run("future notification appears once due", func() {
		feed, err := s.store.ListActive(ctx, customerID, s.now.Add(2*time.Hour))
		s.Require().NoError(err)
		s.Len(feed, 2)
	})
}

func (s *PostgresStoreSuite) TestFlagsAreIdempotent() {
	ctx := context.Background()
	n := s.insert(domain.NewCustomerID(), s.now)

	s.Require().NoError(s.store.MarkRead(ctx, n.ID, s.now))
	s.Require().NoError(s.store.MarkRead(ctx, n.ID, s.now.Add(time.Hour)))

	got, err := s.store.Get(ctx, n.ID)
	s.Require().NoError(err)
	s.True(got.IsRead)
	s.True(got.ReadAt.Equal(s.now)) // first timestamp wins

	s.Require().NoError(s.store.RecordAction(ctx, n.ID, s.now))
	s.Require().NoError(s.store.Dismiss(ctx, n.ID, s.now))

	got, err = s.store.Get(ctx, n.ID)
	s.Require().NoError(err)
	s.True(got.IsActionTaken)
	s.True(got.IsDismissed)

	s.Run("dismissed drops out of the feed", func() {
		feed, err := s.store.ListActive(ctx, n.CustomerID, s.now)
		s.Require().NoError(err)
		s.Empty(feed)
	})

	s.Run("unknown id errors", func() {
		err := s.store.MarkRead(ctx, domain.NewNotificationID(), s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
