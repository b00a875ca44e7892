package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
	"mosolo/pkg/platform/middleware"
)

// =============================================================================
// Eligibility Handler Test Suite
// =============================================================================

type HandlerSuite struct {
	suite.Suite
	service *fakeService
	server  *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &fakeService{}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Actor)
	New(s.service, nil).Register(r)
	s.server = httptest.NewServer(r)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) post(path string, body any, headers map[string]string) *http.Response {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) TestEvaluate() {
	customerID := domain.NewCustomerID()
	s.service.outcomes = []eligibility.Outcome{{
		Target: domain.Target{Type: domain.TargetAccount, Code: domain.AccountS02},
		Status: &eligibility.Status{
			CustomerID: customerID,
			Target:     domain.Target{Type: domain.TargetAccount, Code: domain.AccountS02},
			Eligible:   true,
			Score:      100,
			Progress:   100,
		},
	}}

	s.Run("single target", func() {
		resp := s.post("/eligibility/evaluate", EvaluateRequest{
			CustomerID: customerID.String(),
			TargetType: "ACCOUNT",
			TargetCode: "S02",
		}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		var body EvaluateResponse
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		s.Require().Len(body.Results, 1)
		s.Equal("S02", body.Results[0].TargetCode)
		s.Require().NotNil(body.Results[0].Status)
		s.True(body.Results[0].Status.IsEligible)
		s.Equal("Epargne", body.Results[0].Status.DisplayName)
		s.NotNil(body.Results[0].Status.Met)

		s.Equal([]domain.Target{{Type: domain.TargetAccount, Code: domain.AccountS02}}, s.service.lastTargets)
		s.Equal(eligibility.TriggerCustomerRequest, s.service.lastTrigger)
	})

	s.Run("back-office actor audits as manual", func() {
		resp := s.post("/eligibility/evaluate", EvaluateRequest{
			CustomerID: customerID.String(),
		}, map[string]string{"X-Admin-Actor": "ops@mosolo"})
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Nil(s.service.lastTargets)
		s.Equal(eligibility.TriggerManual, s.service.lastTrigger)
	})

	s.Run("failed target carries its error code", func() {
		s.service.outcomes = []eligibility.Outcome{{
			Target: domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe},
			Err:    dErrors.New(dErrors.CodeUnavailable, "facts unavailable"),
		}}
		resp := s.post("/eligibility/evaluate", EvaluateRequest{CustomerID: customerID.String()}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode)

		var body EvaluateResponse
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
		s.Require().Len(body.Results, 1)
		s.Equal(string(dErrors.CodeUnavailable), body.Results[0].Error)
		s.Nil(body.Results[0].Status)
	})
}

func (s *HandlerSuite) TestEvaluateValidation() {
	s.Run("malformed customer id", func() {
		resp := s.post("/eligibility/evaluate", EvaluateRequest{CustomerID: "not-a-uuid"}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("target code without type", func() {
		resp := s.post("/eligibility/evaluate", EvaluateRequest{
			CustomerID: domain.NewCustomerID().String(),
			TargetCode: "S02",
		}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("unknown target code", func() {
		resp := s.post("/eligibility/evaluate", EvaluateRequest{
			CustomerID: domain.NewCustomerID().String(),
			TargetType: "ACCOUNT",
			TargetCode: "S99",
		}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("service failure maps to internal", func() {
		s.service.err = dErrors.New(dErrors.CodeInternal, "store down")
		defer func() { s.service.err = nil }()

		resp := s.post("/eligibility/evaluate", EvaluateRequest{
			CustomerID: domain.NewCustomerID().String(),
		}, nil)
		defer resp.Body.Close()
		s.Equal(http.StatusInternalServerError, resp.StatusCode)
	})
}

func (s *HandlerSuite) TestStatus() {
	customerID := domain.NewCustomerID()
	nextTarget := domain.Target{Type: domain.TargetService, Code: domain.ServiceBombe}
	s.service.report = &eligibility.StatusReport{
		Accounts: []eligibility.Status{{
			CustomerID:      customerID,
			Target:          domain.Target{Type: domain.TargetAccount, Code: domain.AccountS02},
			Eligible:        true,
			Activated:       true,
			Score:           100,
			Progress:        100,
			LastEvaluatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		}},
		Services: []eligibility.Status{{
			CustomerID:      customerID,
			Target:          nextTarget,
			Score:           60,
			Progress:        60,
			LastEvaluatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		}},
		Summary: eligibility.Summary{
			Evaluated:    2,
			Eligible:     1,
			Activated:    1,
			NextTarget:   &nextTarget,
			NextProgress: 60,
		},
	}

	resp, err := http.Get(s.server.URL + "/eligibility/status/" + customerID.String())
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var body StatusReportResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Require().Len(body.Accounts, 1)
	s.Require().Len(body.Services, 1)
	s.Equal("ACTIVATED", body.Accounts[0].State)
	s.Equal(2, body.Summary.Evaluated)
	s.Equal("SERVICE/BOMBE", body.Summary.NextTarget)
	s.Equal(60.0, body.Summary.NextProgress)

	s.Run("malformed customer id", func() {
		resp, err := http.Get(s.server.URL + "/eligibility/status/nope")
		s.Require().NoError(err)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

// =============================================================================
// Fakes
// =============================================================================

type fakeService struct {
	outcomes []eligibility.Outcome
	report   *eligibility.StatusReport
	err      error

	lastCustomer domain.CustomerID
	lastTargets  []domain.Target
	lastTrigger  eligibility.TriggerEvent
}

func (f *fakeService) Evaluate(_ context.Context, customerID domain.CustomerID, targets []domain.Target, trigger eligibility.TriggerEvent) ([]eligibility.Outcome, error) {
	f.lastCustomer = customerID
	f.lastTargets = targets
	f.lastTrigger = trigger
	if f.err != nil {
		return nil, f.err
	}
	return f.outcomes, nil
}

func (f *fakeService) GetStatus(_ context.Context, customerID domain.CustomerID) (*eligibility.StatusReport, error) {
	f.lastCustomer = customerID
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}
