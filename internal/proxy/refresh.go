package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"syscall"
	"time"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/transport"
)

// refreshSpec describes one of the three refresh loops: which cache key it
// fills, the request it sends, and how long to wait between iterations.
type refreshSpec struct {
	key          CacheKey
	cacheLife    time.Duration
	buildRequest func() a2s.Message

	// wake, if non-nil, lets an external caller (the management API's
	// refresh endpoint) nudge this loop into refreshing sooner than its
	// cacheLife would otherwise trigger. Buffered at size 1 so a nudge
	// is never lost while a refresh is already in flight, but repeated
	// nudges before it's consumed just coalesce into one.
	wake chan struct{}
}

// runRefreshLoop polls serverAddr on its own schedule, storing the raw
// upstream bytes into cache on success and reporting health either way.
// It restarts after any error except context cancellation: one misbehaving
// upstream must never take the whole proxy down.
func runRefreshLoop(ctx context.Context, serverAddr *net.UDPAddr, spec refreshSpec, respTimeout time.Duration, cache *ResponseCache, health *HealthState, log *slog.Logger) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := refreshOnce(ctx, serverAddr, spec, respTimeout, cache, health, log); err != nil {
			if ctx.Err() != nil {
				return
			}
			if isConnectionRefused(err) {
				// Upstream may still be booting; retry at a constant
				// delay rather than backing off.
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}
			log.Warn("refresh loop error, retrying", "key", spec.key, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(spec.cacheLife):
		case <-spec.wake:
		}
	}
}

// refreshOnce performs exactly one connect/send/recv/store cycle.
func refreshOnce(ctx context.Context, serverAddr *net.UDPAddr, spec refreshSpec, respTimeout time.Duration, cache *ResponseCache, health *HealthState, log *slog.Logger) error {
	udp, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		return err
	}
	defer udp.Close()
	conn := transport.NewConn(udp)

	timeout := respTimeout
	if spec.cacheLife > timeout {
		timeout = spec.cacheLife
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := sendRecvPacket(callCtx, conn, spec.buildRequest(), log)
	now := time.Now()
	if err != nil {
		health.Fail(now)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	cache.Set(spec.key, result.Raw)
	health.Ok(now)
	return nil
}

func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
