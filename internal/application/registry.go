package application

import (
	"sync"
	"time"

	"github.com/jeremiehuchet/chatops-bot/internal/domain"
)

// Registry is the keyed store of in-flight pipelines. It holds at most
// one record per pipeline id and is the sole owner of those records.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]domain.WatchedPipeline
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int64]domain.WatchedPipeline)}
}

func (r *Registry) Get(id int64) (domain.WatchedPipeline, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[id]
	return p, ok
}

func (r *Registry) Put(p domain.WatchedPipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[p.ID] = p
}

func (r *Registry) Delete(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes every record older than maxAge, regardless of status,
// and returns how many were removed. Evicted pipelines get no
// notification update; they simply stop being tracked.
func (r *Registry) Sweep(now time.Time, maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, p := range r.entries {
		if now.Sub(p.CreatedAt) > maxAge {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// Snapshot returns a copy of the current watch list.
func (r *Registry) Snapshot() []domain.WatchedPipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.WatchedPipeline, 0, len(r.entries))
	for _, p := range r.entries {
		out = append(out, p)
	}
	return out
}
