package eligibility

import (
	"context"
	"time"

	"mosolo/pkg/domain"
)

// Catalog reads the externally managed condition specs. The engine never
// writes through it.
type Catalog interface {
	// ActiveConditions returns the active specs for a target in display
	// order. An empty result is not an error.
	ActiveConditions(ctx context.Context, target domain.Target) ([]ConditionSpec, error)
}

// FactProvider supplies a point-in-time snapshot of the customer facts named
// by keys. Individual lookup failures are reported by omitting the key, not
// by failing the call; an error means no snapshot could be taken at all.
type FactProvider interface {
	Snapshot(ctx context.Context, customerID domain.CustomerID, keys []string) (FactSnapshot, error)
}

// UpsertRequest carries one scored evaluation into the state store.
type UpsertRequest struct {
	CustomerID   domain.CustomerID
	Target       domain.Target
	Result       Aggregate
	AutoActivate bool
	EvaluatedAt  time.Time
}

// StatusStore is the durable per-(customer, target) record. Implementations
// must serialize concurrent upserts of the same pair and compute the
// transition atomically, so two racing evaluations cannot both observe the
// same false-to-true flip.
type StatusStore interface {
	// Get returns the stored status, or nil when the pair was never
	// evaluated.
	Get(ctx context.Context, customerID domain.CustomerID, target domain.Target) (*Status, error)

	// List returns every stored status for a customer.
	List(ctx context.Context, customerID domain.CustomerID) ([]Status, error)

	// Upsert creates or refreshes the record and reports what changed.
	// EligibleSince moves only on a false-to-true flip; ActivatedAt is
	// never touched here.
	Upsert(ctx context.Context, req UpsertRequest) (*Status, Transition, error)

	// MarkActivated flips the activation flag at most once. The bool
	// reports whether this call performed the flip.
	MarkActivated(ctx context.Context, customerID domain.CustomerID, target domain.Target, at time.Time) (bool, error)

	// ListEligibleUnactivated returns auto-activate rows awaiting the
	// reconciliation sweep, oldest eligibility first, bounded by limit.
	ListEligibleUnactivated(ctx context.Context, limit int) ([]Status, error)
}

// Activator is the external account/service activation collaborator. Calls
// must be safe to retry: the sweep re-invokes it until MarkActivated
// succeeds.
type Activator interface {
	Activate(ctx context.Context, customerID domain.CustomerID, target domain.Target) error
}

// Notifier emits customer-facing notifications. Implementations rate-limit;
// the bool reports whether a notification was actually emitted.
type Notifier interface {
	Celebrate(ctx context.Context, customerID domain.CustomerID, target domain.Target) (bool, error)
	Progress(ctx context.Context, customerID domain.CustomerID, target domain.Target, progress float64) (bool, error)
}

// EvaluationRecord is the append-only audit row written once per evaluation
// run, whatever the outcome.
type EvaluationRecord struct {
	ID              domain.EvaluationID
	CustomerID      domain.CustomerID
	Target          domain.Target
	PrevEligibility *bool
	NewEligibility  bool
	PrevScore       *float64
	NewScore        float64
	Conditions      []ConditionResult
	Trigger         TriggerEvent
	Action          ActionTaken
	EvaluatedAt     time.Time
}

// AuditLog appends evaluation records. Append failures must not roll back
// the status write; the service logs and counts them instead.
type AuditLog interface {
	Append(ctx context.Context, rec EvaluationRecord) error
}
