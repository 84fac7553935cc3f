package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/queryshield/a2sproxy/internal/a2s"
	"github.com/queryshield/a2sproxy/internal/pool"
)

// timeZero clears a socket's read deadline (net.Conn convention).
var timeZero time.Time

// maxDatagramSize sizes the receive buffer only: it's comfortably larger
// than a2s.FragmentMaxSize so a single ReadFromUDP never truncates a
// datagram, however it was framed. The wire-level fragmentation threshold
// is a2s.FragmentMaxSize (1200), not this constant.
const maxDatagramSize = 1400

var bufferPool = pool.New(func() *[]byte {
	buf := make([]byte, maxDatagramSize)
	return &buf
})

// Conn is a UDP socket that speaks whole A2S messages: it transparently
// reassembles incoming fragment trains and splits outgoing messages too
// large for one datagram.
type Conn struct {
	udp        *net.UDPConn
	reassembly *reassemblyTable

	// OnDrop, if set, is called for every datagram RecvPacket discards:
	// header, fragment-header and message decode failures, and fragments
	// the reassembly table rejects. raw is the datagram as received,
	// untouched. Fragments still waiting for the rest of their train, and
	// trains evicted from the reassembly table, are not reported. Callers
	// that want to log a sample of dropped traffic should truncate raw
	// themselves; RecvPacket never does that
	// truncation since it has no opinion on logging policy.
	OnDrop func(raw []byte, peer *net.UDPAddr, err error)
}

// NewConn wraps an already-bound or already-connected *net.UDPConn.
func NewConn(udp *net.UDPConn) *Conn {
	return &Conn{udp: udp, reassembly: newReassemblyTable()}
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.udp.Close()
}

// LocalAddr returns the local address of the underlying socket.
func (c *Conn) LocalAddr() net.Addr {
	return c.udp.LocalAddr()
}

// Packet is one fully reassembled, decoded message along with the peer
// that sent it.
type Packet struct {
	Message a2s.Message
	Raw     []byte
	Peer    *net.UDPAddr
}

// RecvPacket blocks until one complete message has been received,
// reassembling fragment trains transparently. A deadline set via ctx spans
// the entire reassembly: if a train never completes before ctx is done,
// RecvPacket returns ctx.Err().
//
// Unrecognized or malformed datagrams are skipped rather than returned as
// errors, since a single noise packet on the wire should never abort the
// caller's receive loop.
func (c *Conn) RecvPacket(ctx context.Context) (*Packet, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			c.udp.SetReadDeadline(deadline)
		} else {
			c.udp.SetReadDeadline(timeZero)
		}

		bufPtr := bufferPool.Get()
		n, peer, err := c.udp.ReadFromUDP(*bufPtr)
		if err != nil {
			bufferPool.Put(bufPtr)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("transport: read: %w", err)
		}
		raw := append([]byte(nil), (*bufPtr)[:n]...)
		bufferPool.Put(bufPtr)

		split, body, err := a2s.DecodeHeader(raw)
		if err != nil {
			c.drop(raw, peer, err)
			continue
		}

		var full []byte
		if split {
			hdr, payload, err := a2s.DecodeFragmentHeader(body)
			if err != nil {
				c.drop(raw, peer, err)
				continue
			}
			assembled, done, err := c.reassembly.addFragment(hdr, payload)
			if err != nil {
				c.drop(raw, peer, err)
				continue
			}
			if !done {
				continue
			}
			full = assembled
		} else {
			full = body
		}

		msg, err := a2s.Decode(full)
		if err != nil {
			c.drop(raw, peer, err)
			continue
		}
		// Raw is normalized to a complete, unfragmented packet (header +
		// body) regardless of how it arrived on the wire, so callers that
		// cache it can forward it verbatim later without re-deriving
		// whether the original transmission was split.
		normalized := append(a2s.EncodeHeader(false), full...)
		return &Packet{Message: msg, Raw: normalized, Peer: peer}, nil
	}
}

// SendPacket encodes msg and writes it to peer. A packet whose header plus
// body fits in a2s.FragmentMaxSize goes out as one datagram; a larger one
// is split into fragment datagrams carrying at most a2s.FragmentPayloadSize
// body bytes each.
func (c *Conn) SendPacket(peer *net.UDPAddr, msg a2s.Message, messageID int32) error {
	body, err := a2s.Encode(msg)
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}

	if len(body) <= a2s.FragmentMaxSize-a2s.HeaderSize {
		frame := append(a2s.EncodeHeader(false), body...)
		return c.write(peer, frame)
	}

	fragmentCount := (len(body) + a2s.FragmentPayloadSize - 1) / a2s.FragmentPayloadSize
	for i := 0; i < fragmentCount; i++ {
		start := i * a2s.FragmentPayloadSize
		end := start + a2s.FragmentPayloadSize
		if end > len(body) {
			end = len(body)
		}
		hdr := a2s.FragmentHeader{
			MessageID:     messageID,
			FragmentCount: uint8(fragmentCount),
			FragmentID:    uint8(i),
			MTU:           a2s.FragmentMaxSize,
		}
		frame := a2s.EncodeFragmentHeader(hdr, body[start:end])
		if err := c.write(peer, frame); err != nil {
			return err
		}
	}
	return nil
}

// write sends frame to peer, or over the connected socket's implicit
// remote address when peer is nil (the refresh loops dial a per-iteration
// connected socket toward the upstream and never need to name it again).
func (c *Conn) write(peer *net.UDPAddr, frame []byte) error {
	var err error
	if peer == nil {
		_, err = c.udp.Write(frame)
	} else {
		_, err = c.udp.WriteToUDP(frame, peer)
	}
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// drop reports a discarded datagram to OnDrop, if the caller registered one.
func (c *Conn) drop(raw []byte, peer *net.UDPAddr, err error) {
	if c.OnDrop != nil {
		c.OnDrop(raw, peer, err)
	}
}
