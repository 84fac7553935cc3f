// Package a2s implements Valve's Source engine query protocol: request and
// response encoding/decoding for A2S_INFO, A2S_PLAYERS, A2S_RULES, and the
// challenge handshake, plus the Source fragment framing used to split large
// responses across multiple datagrams.
//
// Field decoders are composable: each one consumes a prefix of the buffer
// via a *Reader and returns the remainder implicitly (the Reader's cursor
// advances). A validator failure or premature end of buffer surfaces as one
// of the two sentinel errors below, which callers treat identically: the
// packet is unrecognized and should be dropped.
package a2s

import "errors"

var (
	// ErrBufferExhausted means the buffer ran out before a field could be
	// fully read.
	ErrBufferExhausted = errors.New("a2s: buffer exhausted")

	// ErrBrokenMessage means a field was read but failed validation (wrong
	// tag byte, unsupported opcode, malformed fragment header, ...).
	ErrBrokenMessage = errors.New("a2s: broken message")
)
