package proxy

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/transport"
)

// QueryProxy is the per-server state machine: it owns one client-facing
// listener socket, three independent refresh loops against one upstream
// game server, a shared response cache, and a health tracker.
type QueryProxy struct {
	cfg    config.ServerConfig
	log    *slog.Logger
	cache  *ResponseCache
	health *HealthState

	// ourChallenge is chosen once at construction and never changes: it's
	// the nonce this proxy hands to its own clients, independent of
	// whatever challenge the upstream server issues to us.
	ourChallenge int32

	listenerConn *transport.Conn

	// wakeChans holds one buffered nudge channel per active refresh loop,
	// populated by Run just before the loops start. Nudge sends to each.
	wakeChans []chan struct{}
}

// New builds a QueryProxy for cfg. log should already identify this
// server (fleet.New tags it with the configured server name); Run logs the
// listener's bound address once it is bound, since bind_port may be 0
// until then.
func New(cfg config.ServerConfig, log *slog.Logger) (*QueryProxy, error) {
	challenge, err := randomChallenge()
	if err != nil {
		return nil, fmt.Errorf("proxy: generating challenge: %w", err)
	}
	return &QueryProxy{
		cfg:          cfg,
		log:          log,
		cache:        NewResponseCache(),
		ourChallenge: challenge,
	}, nil
}

// randomChallenge picks a value in [1, 2^31-1], matching the range a real
// Source client would issue.
func randomChallenge() (int32, error) {
	max := big.NewInt(1<<31 - 1)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0, err
	}
	return int32(n.Int64()) + 1, nil
}

// ServerAddr resolves the upstream game server's address.
func (p *QueryProxy) ServerAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", p.cfg.ServerIP, p.cfg.ServerPort))
}

// bindListener opens the client-facing UDP socket. A configured BindPort is
// used as-is; BindPort 0 means "pick a pretty port first": it tries
// server_port+config.BindPortOffset, and if that's taken (or otherwise
// unusable) falls back to whatever free port the OS hands out.
func (p *QueryProxy) bindListener() (*net.UDPConn, *net.UDPAddr, error) {
	if p.cfg.BindPort != 0 {
		addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", p.cfg.BindIP, p.cfg.BindPort))
		if err != nil {
			return nil, nil, fmt.Errorf("resolving bind address: %w", err)
		}
		udp, err := net.ListenUDP("udp", addr)
		if err != nil {
			return nil, nil, err
		}
		return udp, addr, nil
	}

	preferredAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", p.cfg.BindIP, p.cfg.ServerPort+config.BindPortOffset))
	if err == nil {
		if udp, err := net.ListenUDP("udp", preferredAddr); err == nil {
			return udp, preferredAddr, nil
		}
	}

	anyAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:0", p.cfg.BindIP))
	if err != nil {
		return nil, nil, fmt.Errorf("resolving bind address: %w", err)
	}
	udp, err := net.ListenUDP("udp", anyAddr)
	if err != nil {
		return nil, nil, err
	}
	return udp, udp.LocalAddr().(*net.UDPAddr), nil
}

// HealthState exposes the proxy's health tracker for observability
// (management API, fleet status snapshots).
func (p *QueryProxy) HealthState() *HealthState {
	return p.health
}

// Online reports whether the upstream is currently considered reachable.
func (p *QueryProxy) Online() bool {
	if p.health == nil {
		return false
	}
	return p.health.Online()
}

// ConsecutiveFails reports the current run of consecutive refresh failures.
func (p *QueryProxy) ConsecutiveFails() int {
	if p.health == nil {
		return 0
	}
	return p.health.ConsecutiveFails()
}

// CacheAge reports how long ago key was last refreshed, or false if it
// hasn't populated yet.
func (p *QueryProxy) CacheAge(key CacheKey) (time.Duration, bool) {
	return p.cache.Age(key)
}

// Name returns the configured server name, for status reporting.
func (p *QueryProxy) Name() string {
	return p.cfg.Name
}

// NoA2SRules reports whether this server's rules cache/refresh loop is
// disabled, so callers know not to expect a KeyRules age.
func (p *QueryProxy) NoA2SRules() bool {
	return p.cfg.NoA2SRules
}

// Nudge best-effort wakes every refresh loop sooner than its configured
// cache lifetime. It never blocks: each loop holds at most one pending
// nudge, so repeated nudges coalesce, and a loop that is mid-refresh when
// nudged refreshes again as soon as that cycle finishes.
// Returns false if called before Run has started the loops.
func (p *QueryProxy) Nudge() bool {
	if len(p.wakeChans) == 0 {
		return false
	}
	for _, ch := range p.wakeChans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return true
}

// Run binds the client-facing listener and starts the refresh loops
// concurrently. It blocks until ctx is cancelled or a component returns
// unexpectedly (which it treats as a supervisor-level error: log it,
// cancel siblings, and return so an outer restart policy can decide what
// to do next).
func (p *QueryProxy) Run(ctx context.Context, onOnline, onOffline func()) error {
	p.health = NewHealthState(p.cfg.MaxFailsBeforeOffline, onOnline, onOffline)

	udp, bindAddr, err := p.bindListener()
	if err != nil {
		return fmt.Errorf("proxy: binding listener: %w", err)
	}
	defer udp.Close()
	p.listenerConn = transport.NewConn(udp)

	serverAddr, err := p.ServerAddr()
	if err != nil {
		return fmt.Errorf("proxy: resolving server address: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := runListener(runCtx, p.listenerConn, p.cache, p.health, p.ourChallenge, p.log); err != nil {
			errCh <- fmt.Errorf("listener: %w", err)
		}
	}()

	specs := p.refreshSpecs()
	p.wakeChans = make([]chan struct{}, len(specs))
	for i := range specs {
		specs[i].wake = make(chan struct{}, 1)
		p.wakeChans[i] = specs[i].wake
	}
	for _, spec := range specs {
		spec := spec
		wg.Add(1)
		go func() {
			defer wg.Done()
			runRefreshLoop(runCtx, serverAddr, spec, p.cfg.ResponseTimeout, p.cache, p.health, p.log)
		}()
	}

	p.log.Info("query proxy ready", "bind_addr", bindAddr.String(), "server_addr", serverAddr.String())

	var runErr error
	select {
	case runErr = <-errCh:
		p.log.Error("component returned unexpectedly, stopping proxy", "error", runErr)
	case <-ctx.Done():
		runErr = nil
	}
	cancel()
	wg.Wait()
	return runErr
}

func (p *QueryProxy) refreshSpecs() []refreshSpec {
	specs := []refreshSpec{
		{
			key:       KeyInfo,
			cacheLife: p.cfg.InfoCacheLifetime,
			buildRequest: func() a2s.Message {
				return a2s.InfoRequest{Payload: a2s.DefaultInfoPayload, Challenge: a2s.EmptyChallenge}
			},
		},
		{
			key:       KeyPlayers,
			cacheLife: p.cfg.PlayersCacheLifetime,
			buildRequest: func() a2s.Message {
				return a2s.PlayersRequest{Challenge: a2s.EmptyChallenge}
			},
		},
	}
	if !p.cfg.NoA2SRules {
		specs = append(specs, refreshSpec{
			key:       KeyRules,
			cacheLife: p.cfg.RulesCacheLifetime,
			buildRequest: func() a2s.Message {
				return a2s.RulesRequest{Challenge: a2s.EmptyChallenge}
			},
		})
	}
	return specs
}

// WaitReady blocks until every enabled cache key has been populated at
// least once, or until cfg.WaitReadyGracefulPeriod elapses, whichever
// comes first. Per the design notes this bootstrap cache is never reused
// once it returns; subsequent reads go through p.cache directly.
func (p *QueryProxy) WaitReady(ctx context.Context) {
	keys := []CacheKey{KeyInfo, KeyPlayers}
	if !p.cfg.NoA2SRules {
		keys = append(keys, KeyRules)
	}
	p.cache.armAwaitSignals(keys)
	defer p.cache.disarmAwaitSignals()

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.WaitReadyGracefulPeriod)
	defer cancel()

	for _, key := range keys {
		if err := p.cache.GetWait(waitCtx, key); err != nil {
			p.log.Warn("wait_ready graceful period elapsed before caches populated", "missing_key", key)
			return
		}
	}
}
