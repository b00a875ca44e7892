// Package catalog reads the externally managed condition specs. The engine
// is a pure consumer: specs are created and deactivated by the admin
// workflow, never written here.
package catalog

import (
	"context"
	"sync"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// MemoryCatalog serves condition specs from memory. Tests and local
// development seed it directly.
type MemoryCatalog struct {
	mu    sync.RWMutex
	specs map[string][]eligibility.ConditionSpec
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *MemoryCatalog {
	return &MemoryCatalog{specs: make(map[string][]eligibility.ConditionSpec)}
}

// Seed replaces the specs for a target. Test helper, not part of the Catalog
// contract.
func (c *MemoryCatalog) Seed(target domain.Target, specs ...eligibility.ConditionSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[target.String()] = append([]eligibility.ConditionSpec(nil), specs...)
}

// ActiveConditions returns the active specs for a target in display order.
func (c *MemoryCatalog) ActiveConditions(_ context.Context, target domain.Target) ([]eligibility.ConditionSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []eligibility.ConditionSpec
	for _, spec := range c.specs[target.String()] {
		if spec.Active {
			out = append(out, spec)
		}
	}
	eligibility.SortByDisplayOrder(out)
	return out, nil
}
