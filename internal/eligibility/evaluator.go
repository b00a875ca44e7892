package eligibility

import (
	"strconv"
	"strings"
)

// Evaluator interprets one condition spec against one fact snapshot. It is
// pure domain logic: no I/O, no side effects, deterministic for a given
// snapshot.
type Evaluator struct{}

// NewEvaluator returns the condition evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// percentOfKey is the snapshot key under which the fact provider exposes the
// referenced balance of a percentage-of condition.
func percentOfKey(spec ConditionSpec) string {
	return "balance:" + string(spec.Required.Of)
}

// Evaluate produces the verdict for one condition. A missing fact yields an
// unmet result with no distance; it never aborts the caller's run.
func (e *Evaluator) Evaluate(spec ConditionSpec, snapshot FactSnapshot) ConditionResult {
	result := ConditionResult{
		ConditionID: spec.ID,
		Key:         spec.Key,
		Required:    spec.Required,
	}

	current, ok := snapshot.Lookup(spec.Key)
	if !ok {
		return result
	}
	result.Current = &current

	switch spec.Operator {
	case OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		result.Met, result.Distance = e.compareNumeric(spec, current, snapshot)
	case OpEquals, OpNotEquals:
		result.Met, result.Distance = e.compareEquality(spec, current, snapshot)
	case OpBetween:
		result.Met, result.Distance = e.compareBetween(spec, current)
	case OpIn:
		result.Met = contains(spec.Required.Values, scalarText(current))
	case OpNotIn:
		result.Met = !contains(spec.Required.Values, scalarText(current))
	case OpContains:
		result.Met = e.evaluateContains(spec, current)
	default:
		// Unknown operator is a configuration error: fail safe, unmet.
		return result
	}

	result.TimeDenominated = spec.Type.TimeDenominated() && result.Distance != nil
	return result
}

// requiredScalar resolves the numeric threshold of a spec, following
// percentage-of indirection through the snapshot. The second return is the
// currency the threshold is denominated in ("" when unqualified).
func (e *Evaluator) requiredScalar(spec ConditionSpec, snapshot FactSnapshot) (float64, string, bool) {
	req := spec.Required
	if req.Percentage != nil {
		ref, ok := snapshot.Lookup(percentOfKey(spec))
		if !ok {
			return 0, "", false
		}
		return *req.Percentage / 100 * ref.Number, ref.Currency, true
	}
	if req.Amount != nil {
		return *req.Amount, req.Currency, true
	}
	return 0, "", false
}

// currencyMismatch reports a cross-currency comparison, which is a
// configuration error and evaluates as unmet.
func currencyMismatch(current FactValue, requiredCurrency string) bool {
	return current.Kind == FactAmount && requiredCurrency != "" && current.Currency != requiredCurrency
}

func (e *Evaluator) compareNumeric(spec ConditionSpec, current FactValue, snapshot FactSnapshot) (bool, *float64) {
	required, currency, ok := e.requiredScalar(spec, snapshot)
	if !ok || currencyMismatch(current, currency) {
		return false, nil
	}

	var met bool
	var shortfall float64
	switch spec.Operator {
	case OpGreaterThan:
		met = current.Number > required
		shortfall = required - current.Number
	case OpGreaterThanOrEqual:
		met = current.Number >= required
		shortfall = required - current.Number
	case OpLessThan:
		met = current.Number < required
		shortfall = current.Number - required
	case OpLessThanOrEqual:
		met = current.Number <= required
		shortfall = current.Number - required
	}
	if met {
		return true, ptr(0.0)
	}
	if shortfall < 0 {
		shortfall = 0
	}
	return false, &shortfall
}

func (e *Evaluator) compareEquality(spec ConditionSpec, current FactValue, snapshot FactSnapshot) (bool, *float64) {
	// Numeric equality when a threshold is configured; text/bool otherwise.
	if required, currency, ok := e.requiredScalar(spec, snapshot); ok {
		if currencyMismatch(current, currency) {
			return false, nil
		}
		equal := current.Number == required
		met := equal == (spec.Operator == OpEquals)
		if met {
			return true, ptr(0.0)
		}
		if spec.Operator == OpEquals {
			d := required - current.Number
			if d < 0 {
				d = -d
			}
			return false, &d
		}
		return false, nil
	}

	equal := scalarText(current) == spec.Required.Text
	return equal == (spec.Operator == OpEquals), nil
}

func (e *Evaluator) compareBetween(spec ConditionSpec, current FactValue) (bool, *float64) {
	req := spec.Required
	if req.Min == nil || req.Max == nil || currencyMismatch(current, req.Currency) {
		return false, nil
	}
	switch {
	case current.Number < *req.Min:
		return false, ptr(*req.Min - current.Number)
	case current.Number > *req.Max:
		return false, ptr(current.Number - *req.Max)
	default:
		return true, ptr(0.0)
	}
}

func (e *Evaluator) evaluateContains(spec ConditionSpec, current FactValue) bool {
	switch current.Kind {
	case FactSet:
		return contains(current.Set, spec.Required.Text)
	case FactText:
		return strings.Contains(current.Text, spec.Required.Text)
	}
	return false
}

// scalarText renders a fact as the string used by membership and equality
// tests.
func scalarText(v FactValue) string {
	switch v.Kind {
	case FactText:
		return v.Text
	case FactBool:
		return strconv.FormatBool(v.Bool)
	case FactNumber, FactAmount:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func ptr[T any](v T) *T { return &v }
