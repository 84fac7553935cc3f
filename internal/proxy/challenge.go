package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/transport"
)

// dialogResult is what sendRecvPacket hands back once a real (non-challenge)
// response arrives.
type dialogResult struct {
	Message   a2s.Message
	Raw       []byte
	Peer      *net.UDPAddr
	Challenge int32
}

// sendRecvPacket implements the GetChallenge handshake: it sends req, and
// if the reply is a GetChallengeResponse, updates the request's challenge
// field and retries without resetting the overall deadline, until a real
// response arrives or the deadline elapses.
//
// A request type with no challenge field is sent once and whatever comes
// back is returned as-is, challenge handshake or not; in practice every
// request kind this proxy issues implements a2s.ChallengeCarrier.
func sendRecvPacket(ctx context.Context, conn *transport.Conn, req a2s.Message, log *slog.Logger) (dialogResult, error) {
	deadline, _ := ctx.Deadline()
	current := a2s.EmptyChallenge
	sawNonEmptyChallenge := false

	for {
		if err := ctx.Err(); err != nil {
			return dialogResult{}, err
		}

		if err := conn.SendPacket(nil, req, int32(time.Now().UnixNano())); err != nil {
			return dialogResult{}, fmt.Errorf("challenge dialog send: %w", err)
		}

		pkt, err := conn.RecvPacket(ctx)
		if err != nil {
			return dialogResult{}, err
		}

		chalResp, isChallenge := pkt.Message.(a2s.GetChallengeResponse)
		if !isChallenge {
			return dialogResult{Message: pkt.Message, Raw: pkt.Raw, Peer: pkt.Peer, Challenge: current}, nil
		}

		carrier, ok := req.(a2s.ChallengeCarrier)
		if !ok {
			// This request kind has no challenge field to retry with;
			// treat the unexpected GetChallengeResponse as the final
			// reply.
			return dialogResult{Message: pkt.Message, Raw: pkt.Raw, Peer: pkt.Peer, Challenge: current}, nil
		}

		// Per the design notes, "old_challenge != empty" is treated as a
		// plain comparison against EmptyChallenge, not identity.
		if sawNonEmptyChallenge && current != chalResp.Challenge {
			if log != nil {
				log.Warn("upstream reissued a different challenge mid-dialog",
					"previous_challenge", current, "new_challenge", chalResp.Challenge)
			}
		}

		current = chalResp.Challenge
		sawNonEmptyChallenge = current != a2s.EmptyChallenge
		req = carrier.WithChallenge(current)

		if !deadline.IsZero() && time.Now().After(deadline) {
			return dialogResult{}, context.DeadlineExceeded
		}
	}
}
