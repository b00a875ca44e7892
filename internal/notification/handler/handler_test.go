package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"mosolo/internal/notification"
	"mosolo/internal/notification/store"
	"mosolo/pkg/domain"
)

// =============================================================================
// Notification Handler Test Suite
// =============================================================================
// Runs against the real dispatcher over the in-memory store; only the HTTP
// surface is under test.

type HandlerSuite struct {
	suite.Suite
	store  *store.MemoryStore
	svc    *notification.Service
	server *httptest.Server

	customerID domain.CustomerID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewMemory()

	var err error
	s.svc, err = notification.New(s.store)
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(s.svc, nil).Register(r)
	s.server = httptest.NewServer(r)

	s.customerID = domain.NewCustomerID()
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) seedCelebration() domain.NotificationID {
	sent, err := s.svc.Celebrate(context.Background(), s.customerID,
		domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe})
	s.Require().NoError(err)
	s.Require().True(sent)

	feed, err := s.svc.Feed(context.Background(), s.customerID)
	s.Require().NoError(err)
	s.Require().Len(feed, 1)
	return feed[0].ID
}

func (s *HandlerSuite) post(path string) *http.Response {
	resp, err := http.Post(s.server.URL+path, "application/json", nil)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) TestFeed() {
	s.seedCelebration()

	resp, err := http.Get(s.server.URL + "/notifications/" + s.customerID.String())
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Notifications []NotificationResponse `json:"notifications"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Notifications, 1)
	s.Equal("CELEBRATION", body.Notifications[0].Type)
	s.Equal("BOMBE", body.Notifications[0].TargetCode)
	s.False(body.Notifications[0].IsRead)

	s.Run("empty feed is an empty list", func() {
		resp, err := http.Get(s.server.URL + "/notifications/" + domain.NewCustomerID().String())
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		var body struct {
			Notifications []NotificationResponse `json:"notifications"`
		}
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		s.NotNil(body.Notifications)
		s.Empty(body.Notifications)
	})

	s.Run("malformed customer id", func() {
		resp, err := http.Get(s.server.URL + "/notifications/zzz")
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *HandlerSuite) TestFlags() {
	id := s.seedCelebration()

	s.Run("read", func() {
		resp := s.post("/notifications/" + id.String() + "/read")
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		n, err := s.store.Get(context.Background(), id)
		s.Require().NoError(err)
		s.True(n.IsRead)
	})

	s.Run("action", func() {
		resp := s.post("/notifications/" + id.String() + "/action")
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		n, err := s.store.Get(context.Background(), id)
		s.Require().NoError(err)
		s.True(n.IsActionTaken)
	})

	s.Run("dismiss", func() {
		resp := s.post("/notifications/" + id.String() + "/dismiss")
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		n, err := s.store.Get(context.Background(), id)
		s.Require().NoError(err)
		s.True(n.IsDismissed)
	})

	s.Run("unknown id is not found", func() {
		resp := s.post("/notifications/" + domain.NewNotificationID().String() + "/read")
		defer resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("malformed id is bad request", func() {
		resp := s.post("/notifications/zzz/read")
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}
