package proxy

import (
	"sync"
	"time"
)

// HealthState tracks upstream liveness from the refresh loops' point of
// view. A single success restores online (hysteresis); online flips false
// only after maxFails consecutive failures.
//
// Invariant: online == !thresholdReached, maintained by ok()/fail() alone.
type HealthState struct {
	mu sync.Mutex

	lastSuccessAt    time.Time
	consecutiveFails int
	online           bool
	thresholdReached bool

	maxFails int

	onOnline  func()
	onOffline func()
}

// NewHealthState returns a HealthState whose initial thresholdReached is
// true, so the first successful refresh always fires onOnline.
func NewHealthState(maxFails int, onOnline, onOffline func()) *HealthState {
	if onOnline == nil {
		onOnline = func() {}
	}
	if onOffline == nil {
		onOffline = func() {}
	}
	return &HealthState{
		thresholdReached: true,
		maxFails:         maxFails,
		onOnline:         onOnline,
		onOffline:        onOffline,
	}
}

// Online reports the current online/offline opinion.
func (h *HealthState) Online() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online
}

// ConsecutiveFails reports the current run of consecutive refresh failures,
// for status reporting. It resets to zero on any success.
func (h *HealthState) ConsecutiveFails() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFails
}

// Ok records a successful refresh at now. A now older than the last
// recorded success is ignored: concurrent refresh loops can observe
// monotonic time slightly out of order, and we never want a late-arriving
// success to undo a more recent one.
func (h *HealthState) Ok(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now.Before(h.lastSuccessAt) {
		return
	}
	h.lastSuccessAt = now
	h.consecutiveFails = 0
	if h.thresholdReached {
		h.thresholdReached = false
		h.online = true
		h.onOnline()
	}
}

// Fail records a failed refresh at now, subject to the same monotonic
// guard as Ok.
func (h *HealthState) Fail(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now.Before(h.lastSuccessAt) {
		return
	}
	h.consecutiveFails++
	if h.consecutiveFails == h.maxFails {
		h.thresholdReached = true
		h.online = false
		h.onOffline()
	}
}
