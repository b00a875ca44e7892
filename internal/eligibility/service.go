package eligibility

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mosolo/internal/eligibility/metrics"
	"mosolo/pkg/domain"
	dErrors "mosolo/pkg/domain-errors"
	"mosolo/pkg/requestcontext"
)

// Config tunes the engine service.
type Config struct {
	// AutoActivateDefault seeds new status rows; per-row overrides survive
	// later evaluations.
	AutoActivateDefault bool

	// ProgressMilestone is the score step (percent) that fires a progress
	// notification when crossed while ineligible.
	ProgressMilestone float64

	// EvaluateTimeout bounds one target evaluation end to end.
	EvaluateTimeout time.Duration

	// BatchChunkSize and BatchWorkers bound the nightly re-evaluation.
	BatchChunkSize int
	BatchWorkers   int
}

// Service runs the evaluation pipeline for one (customer, target) pair:
// facts, per-condition evaluation, scoring, state upsert, then activation,
// notification, and audit side effects.
type Service struct {
	catalog   Catalog
	facts     FactProvider
	store     StatusStore
	activator Activator
	notifier  Notifier
	audit     AuditLog

	evaluator *Evaluator
	scorer    *Scorer
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithActivator sets the external activation collaborator.
func WithActivator(a Activator) Option {
	return func(s *Service) { s.activator = a }
}

// WithNotifier sets the notification dispatcher.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAuditLog sets the evaluation log sink.
func WithAuditLog(a AuditLog) Option {
	return func(s *Service) { s.audit = a }
}

// New constructs the engine. Catalog, fact provider, and state store are
// required; side-effect collaborators are optional and skipped when absent.
func New(catalog Catalog, facts FactProvider, store StatusStore, cfg Config, opts ...Option) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("condition catalog is required")
	}
	if facts == nil {
		return nil, fmt.Errorf("fact provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("status store is required")
	}
	if cfg.ProgressMilestone <= 0 {
		cfg.ProgressMilestone = 25
	}
	if cfg.EvaluateTimeout <= 0 {
		cfg.EvaluateTimeout = 10 * time.Second
	}
	if cfg.BatchChunkSize <= 0 {
		cfg.BatchChunkSize = 200
	}
	if cfg.BatchWorkers <= 0 {
		cfg.BatchWorkers = 8
	}

	svc := &Service{
		catalog:   catalog,
		facts:     facts,
		store:     store,
		evaluator: NewEvaluator(),
		scorer:    NewScorer(),
		cfg:       cfg,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Evaluate runs the pipeline for the given targets, or every registered
// target when none are given. Per-target failures are isolated: the
// remaining targets still evaluate and the error is reported on the entry.
func (s *Service) Evaluate(ctx context.Context, customerID domain.CustomerID, targets []domain.Target, trigger TriggerEvent) ([]Outcome, error) {
	if customerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "customer id is required")
	}
	if len(targets) == 0 {
		targets = domain.AllTargets()
	}

	outcomes := make([]Outcome, 0, len(targets))
	for _, target := range targets {
		status, err := s.EvaluateTarget(ctx, customerID, target, trigger)
		if err != nil {
			s.logger.WarnContext(ctx, "target evaluation failed",
				"customer_id", customerID,
				"target", target.String(),
				"error", err,
			)
			outcomes = append(outcomes, Outcome{Target: target, Err: err})
			continue
		}
		outcomes = append(outcomes, Outcome{Target: target, Status: status})
	}
	return outcomes, nil
}

// Outcome pairs one target with its evaluation result or error.
type Outcome struct {
	Target domain.Target
	Status *Status
	Err    error
}

// EvaluateTarget runs one full evaluation transaction for one pair.
func (s *Service) EvaluateTarget(ctx context.Context, customerID domain.CustomerID, target domain.Target, trigger TriggerEvent) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EvaluateTimeout)
	defer cancel()

	start := time.Now()
	now := requestcontext.Now(ctx)

	specs, err := s.catalog.ActiveConditions(ctx, target)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load condition specs")
	}
	if len(specs) == 0 {
		// Not fatal: the scorer's empty-set policy applies.
		s.logger.WarnContext(ctx, "no active conditions configured",
			"target", target.String(),
		)
	}

	snapshot, err := s.takeSnapshot(ctx, customerID, specs, now)
	if err != nil {
		return nil, err
	}

	results := make([]ConditionResult, 0, len(specs))
	misses := 0
	for _, spec := range specs {
		r := s.evaluator.Evaluate(spec, snapshot)
		if r.Current == nil {
			misses++
		}
		results = append(results, r)
	}
	s.metrics.AddFactMisses(misses)

	agg := s.scorer.Score(specs, results)

	status, transition, err := s.store.Upsert(ctx, UpsertRequest{
		CustomerID:   customerID,
		Target:       target,
		Result:       agg,
		AutoActivate: s.cfg.AutoActivateDefault,
		EvaluatedAt:  now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist eligibility status")
	}

	action := s.applySideEffects(ctx, status, transition, now)
	s.appendAudit(ctx, status, transition, results, trigger, action, now)

	s.metrics.IncOutcome(string(target.Code), transitionLabel(transition))
	s.metrics.ObserveEvaluateLatency(time.Since(start))

	s.logger.InfoContext(ctx, "target evaluated",
		"customer_id", customerID,
		"target", target.String(),
		"eligible", status.Eligible,
		"score", status.Score,
		"trigger", trigger,
		"action", action,
	)
	return status, nil
}

// takeSnapshot resolves the fact keys the specs need, including referenced
// balances for percentage-of conditions.
func (s *Service) takeSnapshot(ctx context.Context, customerID domain.CustomerID, specs []ConditionSpec, now time.Time) (FactSnapshot, error) {
	seen := make(map[string]struct{}, len(specs))
	keys := make([]string, 0, len(specs))
	add := func(k string) {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, spec := range specs {
		add(spec.Key)
		if spec.Required.Percentage != nil {
			add(percentOfKey(spec))
		}
	}

	snapshot, err := s.facts.Snapshot(ctx, customerID, keys)
	if err != nil {
		return FactSnapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "fact snapshot unavailable")
	}
	if snapshot.TakenAt.IsZero() {
		snapshot.TakenAt = now
	}
	snapshot.CustomerID = customerID
	return snapshot, nil
}

// applySideEffects runs activation and notification for one stored
// transition and returns the dominant action for the audit row.
func (s *Service) applySideEffects(ctx context.Context, status *Status, transition Transition, now time.Time) ActionTaken {
	action := ActionNone

	if transition.BecameEligible && status.AutoActivate && !status.Activated && s.activator != nil {
		if activated := s.tryActivate(ctx, status, now); activated {
			action = ActionActivated
		}
	}

	if s.notifier == nil {
		return action
	}

	if transition.BecameEligible {
		sent, err := s.notifier.Celebrate(ctx, status.CustomerID, status.Target)
		if err != nil {
			s.logger.WarnContext(ctx, "celebration notification failed",
				"customer_id", status.CustomerID,
				"target", status.Target.String(),
				"error", err,
			)
		} else if sent && action == ActionNone {
			action = ActionNotified
		}
		return action
	}

	if !status.Eligible && crossedMilestone(transition.PrevScore, status.Score, s.cfg.ProgressMilestone) {
		sent, err := s.notifier.Progress(ctx, status.CustomerID, status.Target, status.Progress)
		if err != nil {
			s.logger.WarnContext(ctx, "progress notification failed",
				"customer_id", status.CustomerID,
				"target", status.Target.String(),
				"error", err,
			)
		} else if sent && action == ActionNone {
			action = ActionNotified
		}
	}
	return action
}

// tryActivate calls the external activator and flips the stored flag only on
// success. The conditional MarkActivated makes the side effect at-most-once
// even when two evaluations race.
func (s *Service) tryActivate(ctx context.Context, status *Status, now time.Time) bool {
	if err := s.activator.Activate(ctx, status.CustomerID, status.Target); err != nil {
		// Eligibility stands; the reconciliation sweep retries activation.
		s.metrics.IncActivation("failed")
		s.logger.WarnContext(ctx, "activation deferred to reconciliation",
			"customer_id", status.CustomerID,
			"target", status.Target.String(),
			"error", err,
		)
		return false
	}

	flipped, err := s.store.MarkActivated(ctx, status.CustomerID, status.Target, now)
	if err != nil {
		s.metrics.IncActivation("failed")
		s.logger.ErrorContext(ctx, "activation recorded externally but flag update failed",
			"customer_id", status.CustomerID,
			"target", status.Target.String(),
			"error", err,
		)
		return false
	}
	if !flipped {
		s.metrics.IncActivation("lost_race")
		return false
	}

	s.metrics.IncActivation("activated")
	status.Activated = true
	status.ActivatedAt = &now
	return true
}

func (s *Service) appendAudit(ctx context.Context, status *Status, transition Transition, results []ConditionResult, trigger TriggerEvent, action ActionTaken, now time.Time) {
	if s.audit == nil {
		return
	}
	rec := EvaluationRecord{
		ID:              domain.NewEvaluationID(),
		CustomerID:      status.CustomerID,
		Target:          status.Target,
		PrevEligibility: transition.PrevEligible,
		NewEligibility:  status.Eligible,
		PrevScore:       transition.PrevScore,
		NewScore:        status.Score,
		Conditions:      results,
		Trigger:         trigger,
		Action:          action,
		EvaluatedAt:     now,
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		// Non-fatal: the status write stands, the gap is surfaced to
		// observability.
		s.metrics.IncAuditFailure()
		s.logger.ErrorContext(ctx, "evaluation log append failed",
			"customer_id", status.CustomerID,
			"target", status.Target.String(),
			"error", err,
		)
	}
}

// crossedMilestone reports whether the score moved into a new milestone
// band. A missing previous score counts as zero.
func crossedMilestone(prev *float64, current, step float64) bool {
	var before float64
	if prev != nil {
		before = *prev
	}
	return int(current/step) > int(before/step)
}

func transitionLabel(t Transition) string {
	switch {
	case t.BecameEligible:
		return "became_eligible"
	case t.BecameIneligible:
		return "became_ineligible"
	default:
		return "unchanged"
	}
}
