package eligibility

import (
	"context"

	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
)

// StatusReport is the read-path view of one customer across all targets. It
// never triggers an evaluation.
type StatusReport struct {
	Accounts []Status
	Services []Status
	Summary  Summary
}

// Summary aggregates the report for dashboard display.
type Summary struct {
	Evaluated int
	Eligible  int
	Activated int

	// NextTarget is the ineligible target with the highest progress, the
	// one the customer is closest to unlocking.
	NextTarget   *domain.Target
	NextProgress float64
}

// GetStatus assembles the stored statuses for a customer. Targets never
// evaluated are simply absent.
func (s *Service) GetStatus(ctx context.Context, customerID domain.CustomerID) (*StatusReport, error) {
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "customer id is required")
	}

	statuses, err := s.store.List(ctx, customerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list eligibility statuses")
	}

	report := &StatusReport{
		Accounts: []Status{},
		Services: []Status{},
	}
	for _, st := range statuses {
		switch st.Target.Type {
		case domain.TargetAccount:
			report.Accounts = append(report.Accounts, st)
		case domain.TargetService:
			report.Services = append(report.Services, st)
		}

		report.Summary.Evaluated++
		if st.Eligible {
			report.Summary.Eligible++
		}
		if st.Activated {
			report.Summary.Activated++
		}
		if !st.Eligible && st.Progress >= report.Summary.NextProgress {
			target := st.Target
			report.Summary.NextTarget = &target
			report.Summary.NextProgress = st.Progress
		}
	}
	return report, nil
}
