package stats

import (
	"sync"
	"time"

	"todohub/internal/models"
)

// Source is anything that pushes task-list snapshots to listeners; the sync
// engine satisfies it.
type Source interface {
	Subscribe(func(tasks []models.Task))
}

// Aggregator holds the latest stats for one identity, recomputed
// synchronously on every list change.
type Aggregator struct {
	mu      sync.RWMutex
	current models.TaskStats
	clock   func() time.Time
}

func NewAggregator(src Source) *Aggregator {
	a := &Aggregator{clock: time.Now}
	a.current = Compute(nil, a.clock())
	src.Subscribe(a.recompute)
	return a
}

func (a *Aggregator) recompute(tasks []models.Task) {
	computed := Compute(tasks, a.clock())
	a.mu.Lock()
	a.current = computed
	a.mu.Unlock()
}

func (a *Aggregator) Current() models.TaskStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Registry maps identities to their aggregators; one aggregator per
// signed-in identity, created alongside its sync engine.
type Registry struct {
	mu   sync.RWMutex
	aggs map[string]*Aggregator
}

func NewRegistry() *Registry {
	return &Registry{aggs: make(map[string]*Aggregator)}
}

func (r *Registry) Add(ownerID string, a *Aggregator) {
	r.mu.Lock()
	r.aggs[ownerID] = a
	r.mu.Unlock()
}

func (r *Registry) Get(ownerID string) (*Aggregator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.aggs[ownerID]
	return a, ok
}

func (r *Registry) Drop(ownerID string) {
	r.mu.Lock()
	delete(r.aggs, ownerID)
	r.mu.Unlock()
}
