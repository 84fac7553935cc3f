package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/helpers"
	"github.com/queryshield/a2sproxy/internal/transport"
)

// maxLoggedPacketBytes bounds how much of an unrecognized client packet we
// put in a log line.
const maxLoggedPacketBytes = 150

// getResponseFor implements the challenge-validation and response-selection
// table: Info is always answered from cache (a deliberate asymmetry, since
// it carries far less reflection-amplification risk than Players/Rules),
// while Players/Rules demand a round trip through OurChallenge first.
func getResponseFor(req a2s.Message, cache *ResponseCache, ourChallenge int32) (raw []byte, hit bool, challengeEcho a2s.Message) {
	switch v := req.(type) {
	case a2s.InfoRequest:
		raw, hit = cache.Get(KeyInfo)
		return raw, hit, nil

	case a2s.PlayersRequest:
		if v.Challenge == ourChallenge {
			raw, hit = cache.Get(KeyPlayers)
			return raw, hit, nil
		}
		return nil, false, a2s.GetChallengeResponse{Challenge: ourChallenge}

	case a2s.RulesRequest:
		if v.Challenge == ourChallenge {
			raw, hit = cache.Get(KeyRules)
			return raw, hit, nil
		}
		return nil, false, a2s.GetChallengeResponse{Challenge: ourChallenge}

	default:
		return nil, false, nil
	}
}

// runListener serves client queries from cache until ctx is done. It never
// performs upstream I/O and never blocks on anything but the next recv.
func runListener(ctx context.Context, conn *transport.Conn, cache *ResponseCache, health *HealthState, ourChallenge int32, log *slog.Logger) error {
	conn.OnDrop = func(raw []byte, peer *net.UDPAddr, err error) {
		sample := raw[:helpers.ClampInt(len(raw), 0, maxLoggedPacketBytes)]
		peerStr := "<unknown>"
		if peer != nil {
			peerStr = peer.String()
		}
		log.Warn("dropping unrecognized client packet", "peer", peerStr, "error", err, "bytes", fmt.Sprintf("%x", sample))
	}

	for {
		pkt, err := conn.RecvPacket(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			log.Warn("listener recv error", "error", err)
			continue
		}

		if pkt.Peer != nil && pkt.Peer.Port == 0 {
			continue
		}

		if !health.Online() {
			continue
		}

		raw, hit, echo := getResponseFor(pkt.Message, cache, ourChallenge)
		switch {
		case echo != nil:
			if err := conn.SendPacket(pkt.Peer, echo, int32(ourChallenge)); err != nil {
				log.Warn("listener send error", "error", err)
			}
		case hit:
			if err := sendRaw(conn, pkt.Peer, raw); err != nil {
				log.Warn("listener send error", "error", err)
			}
		default:
			// No cached response yet; drop silently.
		}
	}
}

// sendRaw answers a client from a cached packet. The cache holds a complete
// unfragmented packet (4-byte header included); sendRaw strips the header,
// decodes the body back into a Message and hands it to SendPacket, which
// re-encodes it and fragments it if it exceeds one datagram. The bytes sent
// are the re-encoded form, not the cached bytes verbatim: they match the
// cache when the body re-encodes to itself, and differ where decoding
// normalised it (a truncated player or rule list goes out with its count
// rewritten to the number of complete entries).
func sendRaw(conn *transport.Conn, peer *net.UDPAddr, raw []byte) error {
	_, body, err := a2s.DecodeHeader(raw)
	if err != nil {
		return err
	}
	msg, err := a2s.Decode(body)
	if err != nil {
		return err
	}
	return conn.SendPacket(peer, msg, int32(len(raw)))
}
