package a2s

import "fmt"

// ChallengeCarrier is implemented by request messages that carry a
// challenge field and can be resent with an updated one after a
// GetChallengeResponse. InfoRequest, PlayersRequest, and RulesRequest all
// implement it; a request kind with no challenge field simply doesn't.
type ChallengeCarrier interface {
	Message
	WithChallenge(challenge int32) Message
}

// GetChallengeResponse carries the challenge number a server hands out in
// reply to a request with an empty/stale challenge. It's the only message
// whose tag byte (0x41) is shared between a dedicated GetChallenge exchange
// and the header of an InfoResponse under the legacy (pre-Orange Box)
// protocol; we only ever decode it in the challenge-dialog context where
// that ambiguity doesn't arise.
type GetChallengeResponse struct {
	Challenge int32
}

func (GetChallengeResponse) Tag() Kind { return KindGetChallengeResponse }

func decodeGetChallengeResponse(body []byte) (GetChallengeResponse, error) {
	r := NewReader(body)
	ch, err := r.ReadInt32LE()
	if err != nil {
		return GetChallengeResponse{}, fmt.Errorf("challenge response value: %w", err)
	}
	return GetChallengeResponse{Challenge: ch}, nil
}

func (m GetChallengeResponse) encode() []byte {
	w := NewWriter()
	w.WriteByte(byte(KindGetChallengeResponse))
	w.WriteInt32LE(m.Challenge)
	return w.Bytes()
}
