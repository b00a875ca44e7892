package domain

import (
	dErrors "mosolo/pkg/domain-errors"
)

// TargetType distinguishes account-type targets from credit-service targets.
type TargetType string

const (
	TargetAccount TargetType = "ACCOUNT"
	TargetService TargetType = "SERVICE"
)

// ParseTargetType validates a target type string.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetAccount, TargetService:
		return TargetType(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown target type: %s", s)
}

// TargetCode names one account type (S01-S06) or credit service.
type TargetCode string

// Target pairs a type with a code and is the unit the engine evaluates.
type Target struct {
	Type TargetType
	Code TargetCode
}

func (t Target) String() string {
	return string(t.Type) + "/" + string(t.Code)
}

// Account type codes. S01 is the entry-level wallet; higher tiers unlock
// through eligibility.
const (
	AccountS01 TargetCode = "S01"
	AccountS02 TargetCode = "S02"
	AccountS03 TargetCode = "S03"
	AccountS04 TargetCode = "S04"
	AccountS05 TargetCode = "S05"
	AccountS06 TargetCode = "S06"
)

// Credit service codes.
const (
	ServiceBombe     TargetCode = "BOMBE"
	ServiceTelema    TargetCode = "TELEMA"
	ServiceMopao     TargetCode = "MOPAO"
	ServiceVimbisa   TargetCode = "VIMBISA"
	ServiceLikelemba TargetCode = "LIKELEMBA"
)

var accountNames = map[TargetCode]string{
	AccountS01: "Courant",
	AccountS02: "Epargne",
	AccountS03: "Epargne Plus",
	AccountS04: "Projet",
	AccountS05: "Investissement",
	AccountS06: "Premium",
}

var serviceNames = map[TargetCode]string{
	ServiceBombe:     "Bombé",
	ServiceTelema:    "Telema",
	ServiceMopao:     "Mopao",
	ServiceVimbisa:   "Vimbisa",
	ServiceLikelemba: "Likelemba",
}

// AccountTargets returns every account-type target in tier order.
func AccountTargets() []Target {
	codes := []TargetCode{AccountS01, AccountS02, AccountS03, AccountS04, AccountS05, AccountS06}
	targets := make([]Target, 0, len(codes))
	for _, c := range codes {
		targets = append(targets, Target{Type: TargetAccount, Code: c})
	}
	return targets
}

// ServiceTargets returns every credit-service target.
func ServiceTargets() []Target {
	codes := []TargetCode{ServiceBombe, ServiceTelema, ServiceMopao, ServiceVimbisa, ServiceLikelemba}
	targets := make([]Target, 0, len(codes))
	for _, c := range codes {
		targets = append(targets, Target{Type: TargetService, Code: c})
	}
	return targets
}

// AllTargets returns accounts then services.
func AllTargets() []Target {
	return append(AccountTargets(), ServiceTargets()...)
}

// ParseTarget validates a (type, code) pair against the registry.
func ParseTarget(targetType, code string) (Target, error) {
	tt, err := ParseTargetType(targetType)
	if err != nil {
		return Target{}, err
	}
	t := Target{Type: tt, Code: TargetCode(code)}
	if !t.Known() {
		return Target{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown target code: %s", code)
	}
	return t, nil
}

// Known reports whether the target exists in the registry.
func (t Target) Known() bool {
	switch t.Type {
	case TargetAccount:
		_, ok := accountNames[t.Code]
		return ok
	case TargetService:
		_, ok := serviceNames[t.Code]
		return ok
	}
	return false
}

// DisplayName returns the customer-facing name for the target, or the raw
// code when unregistered.
func (t Target) DisplayName() string {
	if name, ok := accountNames[t.Code]; ok && t.Type == TargetAccount {
		return name
	}
	if name, ok := serviceNames[t.Code]; ok && t.Type == TargetService {
		return name
	}
	return string(t.Code)
}
