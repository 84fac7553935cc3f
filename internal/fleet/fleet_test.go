package fleet

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/config"
	"github.com/queryshield/a2sproxy/internal/storage"
	"github.com/queryshield/a2sproxy/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freeUDPAddr(t *testing.T) *net.UDPAddr {
	t.Helper()
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	addr := udp.LocalAddr().(*net.UDPAddr)
	udp.Close()
	return addr
}

// echoUpstream answers every InfoRequest with a fixed response, forever,
// until ctx is done.
func echoUpstream(t *testing.T, ctx context.Context) *net.UDPAddr {
	t.Helper()
	udp, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	t.Cleanup(func() { udp.Close() })
	conn := transport.NewConn(udp)
	go func() {
		for {
			pkt, err := conn.RecvPacket(ctx)
			if err != nil {
				return
			}
			if _, ok := pkt.Message.(a2s.InfoRequest); ok {
				conn.SendPacket(pkt.Peer, a2s.InfoResponse{Name: "fleet test server"}, 1)
			} else {
				conn.SendPacket(pkt.Peer, a2s.GetChallengeResponse{Challenge: 1}, 1)
			}
		}
	}()
	return udp.LocalAddr().(*net.UDPAddr)
}

func TestManager_RunAndStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	up1 := echoUpstream(t, ctx)
	up2 := echoUpstream(t, ctx)
	bind1 := freeUDPAddr(t)
	bind2 := freeUDPAddr(t)

	cfg := &config.FleetConfig{
		Servers: []config.ServerConfig{
			{
				Name: "server-a", ServerIP: up1.IP.String(), ServerPort: up1.Port,
				BindIP: bind1.IP.String(), BindPort: bind1.Port,
				InfoCacheLifetime: time.Second, PlayersCacheLifetime: time.Second, RulesCacheLifetime: time.Second,
				ResponseTimeout: 500 * time.Millisecond, NoA2SRules: true,
				WaitReadyGracefulPeriod: 2 * time.Second, MaxFailsBeforeOffline: 3,
			},
			{
				Name: "server-b", ServerIP: up2.IP.String(), ServerPort: up2.Port,
				BindIP: bind2.IP.String(), BindPort: bind2.Port,
				InfoCacheLifetime: time.Second, PlayersCacheLifetime: time.Second, RulesCacheLifetime: time.Second,
				ResponseTimeout: 500 * time.Millisecond, NoA2SRules: true,
				WaitReadyGracefulPeriod: 2 * time.Second, MaxFailsBeforeOffline: 3,
			},
		},
	}

	ring := storage.NewRing()
	m, err := New(cfg, testLogger(), NewRingRecorder(ring))
	require.NoError(t, err)

	runCtx, cancelRun := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(runCtx) }()

	m.WaitReady(runCtx)

	statuses := m.Status()
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		require.True(t, s.Online, "expected %s to be online after WaitReady", s.Name)
	}

	require.NotNil(t, m.Proxy("server-a"))
	require.Nil(t, m.Proxy("no-such-server"))

	require.True(t, m.HasServer("server-a"))
	require.False(t, m.HasServer("no-such-server"))
	require.True(t, m.Nudge("server-a"))
	require.False(t, m.Nudge("no-such-server"))

	events, err := m.History(runCtx, "server-a", 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	require.Equal(t, storage.TransitionOnline, events[0].Transition)

	cancelRun()
	require.NoError(t, <-errCh)
}
