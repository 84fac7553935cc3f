// Command a2sprobe sends a one-shot A2S_INFO/PLAYERS/RULES query against a
// Source engine server (or a queryshieldd proxy standing in front of one)
// and prints what came back. Useful for manually checking that a proxy's
// cached responses match what the real upstream would answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/transport"
)

func main() {
	var (
		server  = flag.String("server", "127.0.0.1:27015", "Server HOST:PORT")
		timeout = flag.Duration("timeout", 3*time.Second, "Per-request timeout")
		skipA   = flag.Bool("no-rules", false, "Skip the A2S_RULES query")
	)
	flag.Parse()

	if err := probe(*server, *timeout, *skipA); err != nil {
		fmt.Fprintf(os.Stderr, "a2sprobe: %v\n", err)
		os.Exit(1)
	}
}

func probe(server string, timeout time.Duration, skipRules bool) error {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", server, err)
	}
	udp, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", server, err)
	}
	defer udp.Close()
	conn := transport.NewConn(udp)

	ctx := context.Background()

	info, err := queryInfo(ctx, conn, timeout)
	if err != nil {
		return fmt.Errorf("a2s_info: %w", err)
	}
	printInfo(info)

	players, err := queryPlayers(ctx, conn, timeout)
	if err != nil {
		return fmt.Errorf("a2s_players: %w", err)
	}
	printPlayers(players)

	if skipRules {
		return nil
	}
	rules, err := queryRules(ctx, conn, timeout)
	if err != nil {
		return fmt.Errorf("a2s_rules: %w", err)
	}
	printRules(rules)
	return nil
}

// queryInfo sends A2S_INFO and, for the increasingly common servers that
// challenge-protect it too, follows the GetChallenge handshake through to
// the real response rather than stopping at the intermediate challenge.
func queryInfo(ctx context.Context, conn *transport.Conn, timeout time.Duration) (a2s.InfoResponse, error) {
	challenge, err := resolveChallenge(ctx, conn, timeout, func(ch int32) a2s.Message {
		return a2s.InfoRequest{Payload: a2s.DefaultInfoPayload, Challenge: ch}
	})
	if err != nil {
		return a2s.InfoResponse{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.SendPacket(nil, a2s.InfoRequest{Payload: a2s.DefaultInfoPayload, Challenge: challenge}, 1); err != nil {
		return a2s.InfoResponse{}, err
	}
	pkt, err := conn.RecvPacket(callCtx)
	if err != nil {
		return a2s.InfoResponse{}, err
	}
	resp, ok := pkt.Message.(a2s.InfoResponse)
	if !ok {
		return a2s.InfoResponse{}, fmt.Errorf("unexpected response type %T", pkt.Message)
	}
	return resp, nil
}

func queryPlayers(ctx context.Context, conn *transport.Conn, timeout time.Duration) (a2s.PlayersResponse, error) {
	challenge, err := resolveChallenge(ctx, conn, timeout, func(ch int32) a2s.Message {
		return a2s.PlayersRequest{Challenge: ch}
	})
	if err != nil {
		return a2s.PlayersResponse{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.SendPacket(nil, a2s.PlayersRequest{Challenge: challenge}, 2); err != nil {
		return a2s.PlayersResponse{}, err
	}
	pkt, err := conn.RecvPacket(callCtx)
	if err != nil {
		return a2s.PlayersResponse{}, err
	}
	resp, ok := pkt.Message.(a2s.PlayersResponse)
	if !ok {
		return a2s.PlayersResponse{}, fmt.Errorf("unexpected response type %T", pkt.Message)
	}
	return resp, nil
}

func queryRules(ctx context.Context, conn *transport.Conn, timeout time.Duration) (a2s.RulesResponse, error) {
	challenge, err := resolveChallenge(ctx, conn, timeout, func(ch int32) a2s.Message {
		return a2s.RulesRequest{Challenge: ch}
	})
	if err != nil {
		return a2s.RulesResponse{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.SendPacket(nil, a2s.RulesRequest{Challenge: challenge}, 3); err != nil {
		return a2s.RulesResponse{}, err
	}
	pkt, err := conn.RecvPacket(callCtx)
	if err != nil {
		return a2s.RulesResponse{}, err
	}
	resp, ok := pkt.Message.(a2s.RulesResponse)
	if !ok {
		return a2s.RulesResponse{}, fmt.Errorf("unexpected response type %T", pkt.Message)
	}
	return resp, nil
}

// resolveChallenge sends buildReq(EmptyChallenge) and, if the server
// answers with a GetChallengeResponse instead of the real payload, returns
// the issued challenge value for the caller to retry with.
func resolveChallenge(ctx context.Context, conn *transport.Conn, timeout time.Duration, buildReq func(int32) a2s.Message) (int32, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.SendPacket(nil, buildReq(a2s.EmptyChallenge), 0); err != nil {
		return 0, err
	}
	pkt, err := conn.RecvPacket(callCtx)
	if err != nil {
		return 0, err
	}
	switch m := pkt.Message.(type) {
	case a2s.GetChallengeResponse:
		return m.Challenge, nil
	default:
		// Server answered directly without requiring a challenge. The
		// answer is discarded and EmptyChallenge is returned, so the
		// caller sends the unchallenged request a second time and reads
		// the same direct answer from that second round trip.
		return a2s.EmptyChallenge, nil
	}
}

func printInfo(info a2s.InfoResponse) {
	fmt.Printf("INFO  name=%q map=%q game=%q players=%d/%d bots=%d version=%q\n",
		info.Name, info.Map, info.Game, info.Players, info.MaxPlayers, info.Bots, info.Version)
}

func printPlayers(p a2s.PlayersResponse) {
	fmt.Printf("PLAYERS count=%d\n", len(p.Players))
	for _, pl := range p.Players {
		fmt.Printf("  #%d %q score=%d duration=%.1fs\n", pl.Index, pl.Name, pl.Score, pl.Duration)
	}
}

func printRules(r a2s.RulesResponse) {
	fmt.Printf("RULES count=%d\n", len(r.Rules))
	for _, rule := range r.Rules {
		fmt.Printf("  %s = %s\n", rule.Name, rule.Value)
	}
}
