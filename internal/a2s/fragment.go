package a2s

import (
	"fmt"
)

// Source's split-packet framing: every fragment carries the same
// message_id, a total fragment_count, its own fragment_id, and an mtu hint.
// The high bit of message_id flags bzip2 compression. It is recorded in
// FragmentHeader.Compressed but never decompressed (see design notes): a
// compressed train still reassembles, but Decode does not recognise the
// compressed body, so the transport drops it like any unrecognised packet.
const (
	// FragmentMaxSize is the largest datagram Source ever emits for a split
	// response, header included.
	FragmentMaxSize = 1200

	// FragmentHeaderLen is the size of the per-fragment header following
	// the 4-byte split header.
	FragmentHeaderLen = 8

	// FragmentPayloadSize is the largest payload slice a single fragment
	// can carry after both headers.
	FragmentPayloadSize = FragmentMaxSize - HeaderSize - FragmentHeaderLen

	compressionFlagBit int32 = -1 << 31
)

// FragmentHeader is the per-fragment metadata following the split header.
type FragmentHeader struct {
	MessageID      int32
	FragmentCount  uint8
	FragmentID     uint8
	MTU            int16
	Compressed     bool
}

// DecodeFragmentHeader reads a FragmentHeader from the front of body, which
// must already have had the split header stripped via DecodeHeader.
func DecodeFragmentHeader(body []byte) (FragmentHeader, []byte, error) {
	r := NewReader(body)
	rawID, err := r.ReadInt32LE()
	if err != nil {
		return FragmentHeader{}, nil, fmt.Errorf("fragment message_id: %w", err)
	}
	count, err := r.ReadByte()
	if err != nil {
		return FragmentHeader{}, nil, fmt.Errorf("fragment count: %w", err)
	}
	id, err := r.ReadByte()
	if err != nil {
		return FragmentHeader{}, nil, fmt.Errorf("fragment id: %w", err)
	}
	mtu, err := r.ReadInt16LE()
	if err != nil {
		return FragmentHeader{}, nil, fmt.Errorf("fragment mtu: %w", err)
	}
	hdr := FragmentHeader{
		MessageID:     rawID &^ int32(compressionFlagBit),
		FragmentCount: count,
		FragmentID:    id,
		MTU:           mtu,
		Compressed:    rawID&compressionFlagBit != 0,
	}
	if id >= count {
		return FragmentHeader{}, nil, fmt.Errorf("%w: fragment id %d >= count %d", ErrBrokenMessage, id, count)
	}
	return hdr, body[r.off:], nil
}

// EncodeFragmentHeader writes hdr followed by payload into a single
// fragment datagram, including the leading split header.
func EncodeFragmentHeader(hdr FragmentHeader, payload []byte) []byte {
	w := NewWriter()
	rawID := hdr.MessageID
	if hdr.Compressed {
		rawID |= compressionFlagBit
	}
	w.WriteInt32LE(rawID)
	w.WriteByte(hdr.FragmentCount)
	w.WriteByte(hdr.FragmentID)
	w.WriteInt16LE(hdr.MTU)
	w.buf = append(w.buf, payload...)

	out := make([]byte, 0, HeaderSize+w.Len())
	out = append(out, EncodeHeader(true)...)
	out = append(out, w.Bytes()...)
	return out
}
