// Package eligibility implements the conditions evaluation engine: it
// interprets configured condition specs against customer facts, aggregates
// them into an eligibility decision, and drives activation, notification,
// and audit side effects.
package eligibility

import (
	"time"

	"github.com/google/uuid"

	"mosolo/pkg/domain"
)

// Operator is the closed comparison set the evaluator understands. Condition
// rows carry one of these instead of admin-authored expressions; anything
// else is a configuration error and evaluates as unmet.
type Operator string

const (
	OpEquals             Operator = "EQUALS"
	OpNotEquals          Operator = "NOT_EQUALS"
	OpGreaterThan        Operator = "GREATER_THAN"
	OpGreaterThanOrEqual Operator = "GREATER_THAN_OR_EQUAL"
	OpLessThan           Operator = "LESS_THAN"
	OpLessThanOrEqual    Operator = "LESS_THAN_OR_EQUAL"
	OpIn                 Operator = "IN"
	OpNotIn              Operator = "NOT_IN"
	OpBetween            Operator = "BETWEEN"
	OpContains           Operator = "CONTAINS"
)

// ConditionType categorizes what a condition measures. The category decides
// whether an unmet distance is time-denominated and therefore usable for the
// days-to-eligibility estimate.
type ConditionType string

const (
	TypeBalance         ConditionType = "BALANCE"
	TypePercentBalance  ConditionType = "PERCENT_OF_BALANCE"
	TypeDepositStreak   ConditionType = "DEPOSIT_STREAK"
	TypeAccountAge      ConditionType = "ACCOUNT_AGE"
	TypeKYCTier         ConditionType = "KYC_TIER"
	TypeGroupMembership ConditionType = "GROUP_MEMBERSHIP"
	TypePaymentDefaults ConditionType = "PAYMENT_DEFAULTS"
	TypeRepaymentStreak ConditionType = "REPAYMENT_STREAK"
)

var timeDenominated = map[ConditionType]bool{
	TypeDepositStreak:   true,
	TypeAccountAge:      true,
	TypeRepaymentStreak: true,
}

// TimeDenominated reports whether distances for this condition type are
// measured in days.
func (t ConditionType) TimeDenominated() bool { return timeDenominated[t] }

// RequiredValue is the structured payload a condition compares against. Only
// the fields relevant to the condition's operator and type are set.
type RequiredValue struct {
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Values   []string `json:"values,omitempty"`
	Text     string   `json:"text,omitempty"`

	// Percentage-of conditions: require Amount >= Percentage% of the balance
	// of account Of. The fact provider resolves the referenced balance.
	Percentage *float64          `json:"percentage,omitempty"`
	Of         domain.TargetCode `json:"of,omitempty"`
}

// ConditionSpec is one configured condition for a target. Specs are created
// by an external admin workflow and are read-only here; they are deactivated
// rather than mutated so past evaluation logs stay meaningful.
type ConditionSpec struct {
	ID            uuid.UUID
	Target        domain.Target
	Key           string
	Type          ConditionType
	Operator      Operator
	Required      RequiredValue
	Weight        float64
	Mandatory     bool
	Active        bool
	DisplayOrder  int
	Description   string
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// FactKind tags the runtime type of a fact value.
type FactKind string

const (
	FactNumber FactKind = "number"
	FactAmount FactKind = "amount" // number qualified by currency
	FactText   FactKind = "text"
	FactSet    FactKind = "set"
	FactBool   FactKind = "bool"
)

// FactValue is one typed customer fact.
type FactValue struct {
	Kind     FactKind `json:"kind"`
	Number   float64  `json:"number,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Text     string   `json:"text,omitempty"`
	Set      []string `json:"set,omitempty"`
	Bool     bool     `json:"bool,omitempty"`
}

// Amount builds a currency-qualified numeric fact.
func Amount(n float64, currency string) FactValue {
	return FactValue{Kind: FactAmount, Number: n, Currency: currency}
}

// Number builds a plain numeric fact.
func Number(n float64) FactValue { return FactValue{Kind: FactNumber, Number: n} }

// Text builds a string fact.
func Text(s string) FactValue { return FactValue{Kind: FactText, Text: s} }

// Set builds a string-set fact.
func Set(values ...string) FactValue { return FactValue{Kind: FactSet, Set: values} }

// Bool builds a boolean fact.
func Bool(b bool) FactValue { return FactValue{Kind: FactBool, Bool: b} }

// FactSnapshot is a point-in-time view of one customer's facts keyed by
// condition key. Keys whose lookup failed are simply absent; the evaluator
// treats absence as unmet without aborting the run.
type FactSnapshot struct {
	CustomerID domain.CustomerID
	TakenAt    time.Time
	Values     map[string]FactValue
}

// Lookup returns the fact for a condition key.
func (s FactSnapshot) Lookup(key string) (FactValue, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// ConditionResult is the evaluator's verdict for one condition.
type ConditionResult struct {
	ConditionID uuid.UUID     `json:"condition_id"`
	Key         string        `json:"key"`
	Met         bool          `json:"met"`
	Current     *FactValue    `json:"current_value,omitempty"`
	Required    RequiredValue `json:"required_value"`

	// Distance is how far the current value is from satisfying the
	// condition: nil when unknowable (membership tests, missing facts),
	// zero when met.
	Distance *float64 `json:"distance,omitempty"`

	// TimeDenominated mirrors the spec's condition type so the scorer can
	// build the days estimate without re-reading specs.
	TimeDenominated bool `json:"time_denominated,omitempty"`
}

// Aggregate is the scorer's output for one target.
type Aggregate struct {
	Eligible      bool
	Score         float64
	Progress      float64
	EstimatedDays *int
	Met           []ConditionResult
	Missing       []ConditionResult
}

// Results returns met followed by missing, the full evaluated set.
func (a Aggregate) Results() []ConditionResult {
	out := make([]ConditionResult, 0, len(a.Met)+len(a.Missing))
	out = append(out, a.Met...)
	return append(out, a.Missing...)
}

// State is the engine's view of one (customer, target) pair.
type State string

const (
	StateNotEvaluated State = "NOT_EVALUATED"
	StateIneligible   State = "INELIGIBLE"
	StateEligible     State = "ELIGIBLE"
	StateActivated    State = "ACTIVATED"
)

// Status is the durable per-(customer, target) eligibility record.
type Status struct {
	CustomerID    domain.CustomerID
	Target        domain.Target
	Eligible      bool
	Activated     bool
	Score         float64
	Progress      float64
	Met           []ConditionResult
	Missing       []ConditionResult
	EstimatedDays *int
	AutoActivate  bool

	LastEvaluatedAt time.Time
	EligibleSince   *time.Time
	ActivatedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// State derives the state-machine position. Activated dominates; the engine
// treats it as terminal.
func (s *Status) State() State {
	switch {
	case s == nil || s.LastEvaluatedAt.IsZero():
		return StateNotEvaluated
	case s.Activated:
		return StateActivated
	case s.Eligible:
		return StateEligible
	default:
		return StateIneligible
	}
}

// Transition describes what one upsert changed, computed atomically by the
// state store so concurrent evaluations of the same pair cannot both observe
// the same flip.
type Transition struct {
	PrevEligible     *bool
	PrevScore        *float64
	BecameEligible   bool
	BecameIneligible bool
}

// TriggerEvent names what caused an evaluation.
type TriggerEvent string

const (
	TriggerDeposit         TriggerEvent = "DEPOSIT"
	TriggerDailyCheck      TriggerEvent = "DAILY_CHECK"
	TriggerManual          TriggerEvent = "MANUAL"
	TriggerRegistration    TriggerEvent = "REGISTRATION"
	TriggerCustomerRequest TriggerEvent = "CUSTOMER_REQUEST"
)

// ActionTaken records the dominant side effect of an evaluation.
type ActionTaken string

const (
	ActionActivated ActionTaken = "ACTIVATED"
	ActionNotified  ActionTaken = "NOTIFIED"
	ActionNone      ActionTaken = "NONE"
)
