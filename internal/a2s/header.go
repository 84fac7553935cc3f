package a2s

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of the split header in bytes (RFC: always
// present, every outgoing packet starts with it).
const HeaderSize = 4

const (
	splitHeaderNoSplit int32 = -1
	splitHeaderSplit   int32 = -2
)

// DecodeHeader reads the 4-byte split header from msg and returns whether
// the body is a fragment (SPLIT) along with the remaining bytes. An
// unrecognized header value is a broken message, not a buffer shortfall.
func DecodeHeader(msg []byte) (split bool, body []byte, err error) {
	if len(msg) < HeaderSize {
		return false, nil, fmt.Errorf("%w: short of split header", ErrBufferExhausted)
	}
	v := int32(binary.LittleEndian.Uint32(msg[:HeaderSize]))
	switch v {
	case splitHeaderNoSplit:
		return false, msg[HeaderSize:], nil
	case splitHeaderSplit:
		return true, msg[HeaderSize:], nil
	default:
		return false, nil, fmt.Errorf("%w: unrecognized split header %d", ErrBrokenMessage, v)
	}
}

// EncodeHeader returns the 4-byte split header: NO_SPLIT unless split is
// true, in which case SPLIT is emitted. Encode never adds it:
// EncodeFragmentHeader emits the SPLIT form for each fragment, and
// internal/transport prepends the NO_SPLIT form to every unsplit packet.
func EncodeHeader(split bool) []byte {
	v := splitHeaderNoSplit
	if split {
		v = splitHeaderSplit
	}
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}
