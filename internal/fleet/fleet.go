// Package fleet orchestrates one QueryProxy per configured game server: it
// starts them concurrently under a shared cancellable context (mirroring the
// teacher's server.Runner.Run pattern of one goroutine per subsystem plus a
// buffered error channel), aggregates readiness across the whole fleet, and
// exposes read-only status snapshots for the management API.
package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/proxy"
	"github.com/queryshield/a2sproxy/internal/storage"
)

// HealthEventRecorder persists a single online/offline transition. Both
// *storage.DB and *storage.Ring satisfy a narrowed version of this via the
// adapters in recorder.go.
type HealthEventRecorder interface {
	Record(serverName string, transition storage.Transition)
}

// HistoryReader reads back recorded transitions for the management API's
// /servers/:name/history endpoint. Implemented by the same adapters in
// recorder.go that implement HealthEventRecorder.
type HistoryReader interface {
	Recent(ctx context.Context, serverName string, limit int) ([]storage.HealthEvent, error)
}

// Recorder is the combined read/write dependency a Manager needs for health
// event persistence; nil is valid and simply disables history tracking.
type Recorder interface {
	HealthEventRecorder
	HistoryReader
}

// Manager owns one QueryProxy per configured server.
type Manager struct {
	log      *slog.Logger
	recorder Recorder

	mu      sync.RWMutex
	proxies map[string]*proxy.QueryProxy
}

// New builds a Manager for cfg.Servers. Each proxy's logger carries a
// server=<Name> attribute; config fills an empty Name with
// "<server_ip>:<server_port>", so the bind address is not part of the
// logger's identity (each proxy logs its bound address once it is ready).
func New(cfg *config.FleetConfig, log *slog.Logger, recorder Recorder) (*Manager, error) {
	m := &Manager{
		log:      log,
		recorder: recorder,
		proxies:  make(map[string]*proxy.QueryProxy, len(cfg.Servers)),
	}
	for _, sc := range cfg.Servers {
		proxyLog := log.With("server", sc.Name)
		p, err := proxy.New(sc, proxyLog)
		if err != nil {
			return nil, fmt.Errorf("fleet: building proxy for %s: %w", sc.Name, err)
		}
		m.proxies[sc.Name] = p
	}
	return m, nil
}

// Run starts every proxy concurrently and blocks until ctx is cancelled or
// any single proxy returns an unexpected error, in which case siblings are
// cancelled too and the error is returned.
func (m *Manager) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(m.proxies))

	for name, p := range m.proxies {
		name, p := name, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			onOnline := func() { m.recordTransition(name, storage.TransitionOnline) }
			onOffline := func() { m.recordTransition(name, storage.TransitionOffline) }
			if err := p.Run(runCtx, onOnline, onOffline); err != nil {
				errCh <- fmt.Errorf("server %s: %w", name, err)
			}
		}()
	}

	var runErr error
	select {
	case runErr = <-errCh:
		m.log.Error("fleet: a server's proxy returned unexpectedly, stopping fleet", "error", runErr)
	case <-ctx.Done():
		runErr = nil
	}
	cancel()
	wg.Wait()
	return runErr
}

func (m *Manager) recordTransition(name string, t storage.Transition) {
	if m.recorder == nil {
		return
	}
	m.recorder.Record(name, t)
}

// WaitReady blocks until every proxy's caches have populated at least once,
// or until the longest configured graceful period elapses, whichever comes
// first. It runs each proxy's own WaitReady concurrently so one slow server
// doesn't serialize behind another.
func (m *Manager) WaitReady(ctx context.Context) {
	var wg sync.WaitGroup
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.proxies {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.WaitReady(ctx)
		}()
	}
	wg.Wait()
}

// CacheAge reports how long ago a cache key was last refreshed, keyed by
// the proxy package's own CacheKey string value ("a2s_info", etc.) so this
// package doesn't need to import proxy's CacheKey type for JSON encoding.
type CacheAge struct {
	Key   string
	Age   time.Duration
	Fresh bool
}

// ServerStatus is a read-only snapshot of one proxy's state.
type ServerStatus struct {
	Name             string
	Online           bool
	ConsecutiveFails int
	Caches           []CacheAge
}

// Status returns a snapshot of every server's online/offline state. It
// never blocks a refresh loop: it only reads each HealthState's own
// mutex-guarded Online() value and the cache's own age map.
func (m *Manager) Status() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ServerStatus, 0, len(m.proxies))
	for name, p := range m.proxies {
		keys := []proxy.CacheKey{proxy.KeyInfo, proxy.KeyPlayers}
		if !p.NoA2SRules() {
			keys = append(keys, proxy.KeyRules)
		}
		caches := make([]CacheAge, 0, len(keys))
		for _, k := range keys {
			age, fresh := p.CacheAge(k)
			caches = append(caches, CacheAge{Key: string(k), Age: age, Fresh: fresh})
		}
		out = append(out, ServerStatus{
			Name:             name,
			Online:           p.Online(),
			ConsecutiveFails: p.ConsecutiveFails(),
			Caches:           caches,
		})
	}
	return out
}

// Proxy returns the named proxy, or nil if no such server is configured.
func (m *Manager) Proxy(name string) *proxy.QueryProxy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proxies[name]
}

// Nudge best-effort wakes name's refresh loops sooner. Returns false if
// there's no such server, or its proxy hasn't started yet.
func (m *Manager) Nudge(name string) bool {
	p := m.Proxy(name)
	if p == nil {
		return false
	}
	return p.Nudge()
}

// History returns up to limit recent health transitions for name, newest
// first, or nil if no recorder was configured.
func (m *Manager) History(ctx context.Context, name string, limit int) ([]storage.HealthEvent, error) {
	if m.recorder == nil {
		return nil, nil
	}
	return m.recorder.Recent(ctx, name, limit)
}

// HasServer reports whether name is a configured server, independent of
// whether its proxy has started yet.
func (m *Manager) HasServer(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.proxies[name]
	return ok
}
