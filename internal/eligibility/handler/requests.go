package handler

import (
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
)

// EvaluateRequest is the POST /eligibility/evaluate body. Target fields are
// optional together: absent means evaluate every registered target.
type EvaluateRequest struct {
	CustomerID string `json:"customer_id"`
	TargetType string `json:"target_type,omitempty"`
	TargetCode string `json:"target_code,omitempty"`
}

// Parse validates the request into domain values.
func (r EvaluateRequest) Parse() (domain.CustomerID, []domain.Target, error) {
	customerID, err := domain.ParseCustomerID(r.CustomerID)
	if err != nil {
		return domain.CustomerID{}, nil, err
	}

	if r.TargetType == "" && r.TargetCode == "" {
		return customerID, nil, nil
	}
	if r.TargetType == "" || r.TargetCode == "" {
		return domain.CustomerID{}, nil, dErrors.New(dErrors.CodeBadRequest,
			"target_type and target_code must be provided together")
	}
	target, err := domain.ParseTarget(r.TargetType, r.TargetCode)
	if err != nil {
		return domain.CustomerID{}, nil, err
	}
	return customerID, []domain.Target{target}, nil
}
