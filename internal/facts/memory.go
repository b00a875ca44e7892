package facts

import (
	"context"
	"sync"
	"time"

	"mosolo/internal/eligibility"
	"mosolo/pkg/domain"
)

// MemoryProvider serves facts from a seeded map. Tests and dependency-free
// development use it in place of the Postgres provider.
type MemoryProvider struct {
	mu    sync.RWMutex
	facts map[domain.CustomerID]map[string]eligibility.FactValue
}

// NewMemory returns an empty in-memory fact provider.
func NewMemory() *MemoryProvider {
	return &MemoryProvider{facts: make(map[domain.CustomerID]map[string]eligibility.FactValue)}
}

// Seed sets one fact for a customer.
func (p *MemoryProvider) Seed(customerID domain.CustomerID, key string, value eligibility.FactValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.facts[customerID] == nil {
		p.facts[customerID] = make(map[string]eligibility.FactValue)
	}
	p.facts[customerID][key] = value
}

// Drop removes one fact, simulating a lookup failure for that key.
func (p *MemoryProvider) Drop(customerID domain.CustomerID, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.facts[customerID], key)
}

// Snapshot resolves the requested keys; absent keys are omitted.
func (p *MemoryProvider) Snapshot(_ context.Context, customerID domain.CustomerID, keys []string) (eligibility.FactSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snapshot := eligibility.FactSnapshot{
		CustomerID: customerID,
		TakenAt:    time.Now(),
		Values:     make(map[string]eligibility.FactValue, len(keys)),
	}
	for _, key := range keys {
		if v, ok := p.facts[customerID][key]; ok {
			snapshot.Values[key] = v
		}
	}
	return snapshot, nil
}
