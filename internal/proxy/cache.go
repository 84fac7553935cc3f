// Package proxy implements the per-server query proxy state machine: cache
// refresh loops, challenge handling, health tracking, and the client-facing
// listener that answers A2S queries from cache.
package proxy

import (
	"context"
	"sync"
	"time"
)

// CacheKey identifies one of the three cached response kinds.
type CacheKey string

const (
	KeyInfo    CacheKey = "a2s_info"
	KeyPlayers CacheKey = "a2s_players"
	KeyRules   CacheKey = "a2s_rules"
)

// ResponseCache holds the most recently received raw upstream response
// bytes per key: the entire packet, header included, ready to forward
// verbatim to a client. Refresh loops write; the listener reads.
//
// During startup it doubles as the AwaitableCache from the design notes:
// WaitReady arms one-shot signal channels for the keys it cares about, and
// every Set checks whether a signal is armed for its key before storing the
// value, closing it exactly once. This is a bootstrap-only concern — once
// WaitReady returns, the signals are torn down and Set is a plain map
// write for the rest of the proxy's lifetime.
type ResponseCache struct {
	mu        sync.RWMutex
	data      map[CacheKey][]byte
	updatedAt map[CacheKey]time.Time
	signals   map[CacheKey]chan struct{}
}

// NewResponseCache returns an empty cache.
func NewResponseCache() *ResponseCache {
	return &ResponseCache{
		data:      make(map[CacheKey][]byte),
		updatedAt: make(map[CacheKey]time.Time),
	}
}

// Get returns the cached bytes for key, or (nil, false) if never populated.
func (c *ResponseCache) Get(key CacheKey) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[key]
	return b, ok
}

// Age reports how long ago key was last refreshed, or false if it has
// never been populated. Used by the management API's status snapshot.
func (c *ResponseCache) Age(key CacheKey) (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.updatedAt[key]
	if !ok {
		return 0, false
	}
	return time.Since(t), true
}

// Set stores raw, replacing whatever was cached for key, and releases any
// waiter armed for key via armAwaitSignals.
func (c *ResponseCache) Set(key CacheKey, raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.updatedAt[key] = time.Now()
	if ch, tracked := c.signals[key]; tracked {
		select {
		case <-ch:
			// already signaled
		default:
			close(ch)
		}
	}
}

// armAwaitSignals installs one-shot channels for keys not yet populated.
// Keys already populated are skipped entirely, since GetWait checks the
// map directly first.
func (c *ResponseCache) armAwaitSignals(keys []CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = make(map[CacheKey]chan struct{}, len(keys))
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			continue
		}
		c.signals[k] = make(chan struct{})
	}
}

// disarmAwaitSignals tears down the bootstrap signal map. Safe to call
// even if nothing was armed.
func (c *ResponseCache) disarmAwaitSignals() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = nil
}

// GetWait blocks until key has been set at least once, or ctx is done,
// whichever comes first. Requires armAwaitSignals to have been called for
// key beforehand; otherwise it returns immediately if already populated,
// or blocks forever on ctx alone if not (callers always pair this with
// WaitReady, which arms signals first).
func (c *ResponseCache) GetWait(ctx context.Context, key CacheKey) error {
	c.mu.Lock()
	if _, ok := c.data[key]; ok {
		c.mu.Unlock()
		return nil
	}
	ch, tracked := c.signals[key]
	c.mu.Unlock()
	if !tracked {
		ch = make(chan struct{})
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
