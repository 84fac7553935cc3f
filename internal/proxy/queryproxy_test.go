package proxy

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/queryshield/a2sproxy/internal/config"
)

func TestBindListener_PreferredPort(t *testing.T) {
	serverPort := freeUDPAddr(t).Port
	cfg := config.ServerConfig{BindIP: "127.0.0.1", ServerPort: serverPort, BindPort: 0}
	p, err := New(cfg, testLogger())
	require.NoError(t, err)

	udp, addr, err := p.bindListener()
	require.NoError(t, err)
	defer udp.Close()
	require.Equal(t, serverPort+config.BindPortOffset, addr.Port)
}

func TestBindListener_FallsBackWhenPreferredTaken(t *testing.T) {
	serverPort := freeUDPAddr(t).Port
	preferred, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: serverPort + config.BindPortOffset})
	require.NoError(t, err)
	defer preferred.Close()

	cfg := config.ServerConfig{BindIP: "127.0.0.1", ServerPort: serverPort, BindPort: 0}
	p, err := New(cfg, testLogger())
	require.NoError(t, err)

	udp, addr, err := p.bindListener()
	require.NoError(t, err)
	defer udp.Close()
	require.NotEqual(t, serverPort+config.BindPortOffset, addr.Port)
}

func TestBindListener_ExplicitPortUsedAsIs(t *testing.T) {
	bindAddr := freeUDPAddr(t)
	cfg := config.ServerConfig{BindIP: bindAddr.IP.String(), ServerPort: 1, BindPort: bindAddr.Port}
	p, err := New(cfg, testLogger())
	require.NoError(t, err)

	udp, addr, err := p.bindListener()
	require.NoError(t, err)
	defer udp.Close()
	require.Equal(t, bindAddr.Port, addr.Port)
}
