package eligibility

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"mosolo/pkg/domain"
	"mosolo/pkg/requestcontext"
)

// BatchResult summarizes one batch re-evaluation run. Failed holds the
// customers whose evaluation errored; callers retry only that subset.
type BatchResult struct {
	Processed int
	Failed    []domain.CustomerID
}

// RunBatch re-evaluates every target for the given customers in bounded
// chunks. One failing customer never aborts the batch; context cancellation
// does.
func (s *Service) RunBatch(ctx context.Context, customerIDs []domain.CustomerID, trigger TriggerEvent) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
	)

	for start := 0; start < len(customerIDs); start += s.cfg.BatchChunkSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := start + s.cfg.BatchChunkSize
		if end > len(customerIDs) {
			end = len(customerIDs)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.cfg.BatchWorkers)
		for _, customerID := range customerIDs[start:end] {
			g.Go(func() error {
				outcomes, err := s.Evaluate(gctx, customerID, nil, trigger)
				failed := err != nil
				if !failed {
					for _, o := range outcomes {
						if o.Err != nil {
							failed = true
							break
						}
					}
				}

				mu.Lock()
				result.Processed++
				if failed {
					result.Failed = append(result.Failed, customerID)
				}
				mu.Unlock()

				if failed {
					s.metrics.IncBatchCustomer("failed")
				} else {
					s.metrics.IncBatchCustomer("ok")
				}
				// Failures are collected, not propagated: the group only
				// stops on context cancellation.
				return gctx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Reconcile retries activation for eligible, auto-activate rows whose
// activation previously failed. Returns how many rows were activated.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	if s.activator == nil {
		return 0, nil
	}

	pending, err := s.store.ListEligibleUnactivated(ctx, s.cfg.BatchChunkSize)
	if err != nil {
		return 0, err
	}

	now := requestcontext.Now(ctx)
	activated := 0
	for i := range pending {
		status := pending[i]
		if err := ctx.Err(); err != nil {
			return activated, err
		}
		if s.tryActivate(ctx, &status, now) {
			activated++
		}
	}
	if activated > 0 {
		s.logger.InfoContext(ctx, "reconciliation sweep activated pending rows",
			"count", activated,
		)
	}
	return activated, nil
}
