package handler

import (
	"time"

	"mosolo/internal/eligibility"
	dErrors "mosolo/pkg/domain-errors"
)

// StatusResponse is the wire shape of one stored eligibility status.
type StatusResponse struct {
	TargetType    string                        `json:"target_type"`
	TargetCode    string                        `json:"target_code"`
	DisplayName   string                        `json:"display_name"`
	State         string                        `json:"state"`
	IsEligible    bool                          `json:"is_eligible"`
	IsActivated   bool                          `json:"is_activated"`
	Score         float64                       `json:"score"`
	Progress      float64                       `json:"progress"`
	Met           []eligibility.ConditionResult `json:"conditions_met"`
	Missing       []eligibility.ConditionResult `json:"conditions_missing"`
	EstimatedDays *int                          `json:"estimated_days_to_eligibility,omitempty"`
	EvaluatedAt   time.Time                     `json:"last_evaluated_at"`
	EligibleSince *time.Time                    `json:"eligible_since,omitempty"`
	ActivatedAt   *time.Time                    `json:"activated_at,omitempty"`
}

func fromStatus(st *eligibility.Status) StatusResponse {
	met := st.Met
	if met == nil {
		met = []eligibility.ConditionResult{}
	}
	missing := st.Missing
	if missing == nil {
		missing = []eligibility.ConditionResult{}
	}
	return StatusResponse{
		TargetType:    string(st.Target.Type),
		TargetCode:    string(st.Target.Code),
		DisplayName:   st.Target.DisplayName(),
		State:         string(st.State()),
		IsEligible:    st.Eligible,
		IsActivated:   st.Activated,
		Score:         st.Score,
		Progress:      st.Progress,
		Met:           met,
		Missing:       missing,
		EstimatedDays: st.EstimatedDays,
		EvaluatedAt:   st.LastEvaluatedAt,
		EligibleSince: st.EligibleSince,
		ActivatedAt:   st.ActivatedAt,
	}
}

// EvaluateEntry is one target's evaluation outcome. Failed targets carry an
// error code instead of a status.
type EvaluateEntry struct {
	TargetType string          `json:"target_type"`
	TargetCode string          `json:"target_code"`
	Error      string          `json:"error,omitempty"`
	Status     *StatusResponse `json:"status,omitempty"`
}

// EvaluateResponse is the POST /eligibility/evaluate body.
type EvaluateResponse struct {
	Results []EvaluateEntry `json:"results"`
}

func fromOutcomes(outcomes []eligibility.Outcome) EvaluateResponse {
	resp := EvaluateResponse{Results: make([]EvaluateEntry, 0, len(outcomes))}
	for _, o := range outcomes {
		entry := EvaluateEntry{
			TargetType: string(o.Target.Type),
			TargetCode: string(o.Target.Code),
		}
		if o.Err != nil {
			entry.Error = string(dErrors.GetCode(o.Err))
		} else {
			st := fromStatus(o.Status)
			entry.Status = &st
		}
		resp.Results = append(resp.Results, entry)
	}
	return resp
}

// StatusReportResponse is the GET /eligibility/status body.
type StatusReportResponse struct {
	Accounts []StatusResponse `json:"accounts"`
	Services []StatusResponse `json:"services"`
	Summary  SummaryResponse  `json:"summary"`
}

// SummaryResponse aggregates the report.
type SummaryResponse struct {
	Evaluated    int     `json:"evaluated"`
	Eligible     int     `json:"eligible"`
	Activated    int     `json:"activated"`
	NextTarget   string  `json:"next_target,omitempty"`
	NextProgress float64 `json:"next_progress,omitempty"`
}

func fromReport(report *eligibility.StatusReport) StatusReportResponse {
	resp := StatusReportResponse{
		Accounts: make([]StatusResponse, 0, len(report.Accounts)),
		Services: make([]StatusResponse, 0, len(report.Services)),
		Summary: SummaryResponse{
			Evaluated: report.Summary.Evaluated,
			Eligible:  report.Summary.Eligible,
			Activated: report.Summary.Activated,
		},
	}
	for i := range report.Accounts {
		resp.Accounts = append(resp.Accounts, fromStatus(&report.Accounts[i]))
	}
	for i := range report.Services {
		resp.Services = append(resp.Services, fromStatus(&report.Services[i]))
	}
	if report.Summary.NextTarget != nil {
		resp.Summary.NextTarget = report.Summary.NextTarget.String()
		resp.Summary.NextProgress = report.Summary.NextProgress
	}
	return resp
}
