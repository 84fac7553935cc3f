package storage

import (
	"sync"
	"time"
)

// ringCapacity bounds how many health events the in-memory fallback keeps
// per server when no database path is configured.
const ringCapacity = 200

// Ring is an in-memory, bounded substitute for the SQLite-backed health
// event history. It's used whenever storage.Path is empty: the management
// API still has something to show, it just doesn't survive a restart.
type Ring struct {
	mu     sync.Mutex
	events map[string][]HealthEvent
}

// NewRing builds an empty Ring.
func NewRing() *Ring {
	return &Ring{events: make(map[string][]HealthEvent)}
}

// Record appends one transition for serverName, evicting the oldest event
// once the per-server bound is exceeded.
func (r *Ring) Record(serverName string, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events[serverName]
	events = append(events, HealthEvent{
		ServerName: serverName,
		Transition: t,
		OccurredAt: time.Now(),
	})
	if len(events) > ringCapacity {
		events = events[len(events)-ringCapacity:]
	}
	r.events[serverName] = events
}

// Recent returns up to limit most-recent events for serverName, newest
// first.
func (r *Ring) Recent(serverName string, limit int) []HealthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.events[serverName]
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]HealthEvent, limit)
	for i := 0; i < limit; i++ {
		out[i] = events[len(events)-1-i]
	}
	return out
}
