package a2s

import "fmt"

// RulesRequest is an A2S_RULES request, identical in shape to
// PlayersRequest but tagged separately since the two are cached and
// refreshed independently.
type RulesRequest struct {
	Challenge int32
}

func (RulesRequest) Tag() Kind { return KindRulesRequest }

func decodeRulesRequest(body []byte) (RulesRequest, error) {
	r := NewReader(body)
	ch, err := r.ReadInt32LE()
	if err != nil {
		return RulesRequest{}, fmt.Errorf("rules request challenge: %w", err)
	}
	return RulesRequest{Challenge: ch}, nil
}

func (m RulesRequest) encode() []byte {
	w := NewWriter()
	w.WriteByte(byte(KindRulesRequest))
	w.WriteInt32LE(m.Challenge)
	return w.Bytes()
}

func (m RulesRequest) WithChallenge(challenge int32) Message {
	m.Challenge = challenge
	return m
}

// Rule is one cvar/value pair in an A2S_RULES response.
type Rule struct {
	Name  string
	Value string
}

// RulesResponse is an A2S_RULES response body.
type RulesResponse struct {
	Rules []Rule
}

func (RulesResponse) Tag() Kind { return KindRulesResponse }

func decodeRulesResponse(body []byte) (RulesResponse, error) {
	r := NewReader(body)
	count, err := r.ReadInt16LE()
	if err != nil {
		return RulesResponse{}, fmt.Errorf("rules response count: %w", err)
	}
	if count < 0 {
		return RulesResponse{}, fmt.Errorf("%w: negative rule count %d", ErrBrokenMessage, count)
	}
	rules := make([]Rule, 0, count)
	for i := int16(0); i < count; i++ {
		if r.Remaining() == 0 {
			break
		}
		var rule Rule
		if rule.Name, err = r.ReadCString(); err != nil {
			break
		}
		if rule.Value, err = r.ReadCString(); err != nil {
			break
		}
		rules = append(rules, rule)
	}
	return RulesResponse{Rules: rules}, nil
}

func (m RulesResponse) encode() []byte {
	w := NewWriter()
	w.WriteByte(byte(KindRulesResponse))
	w.WriteInt16LE(int16(len(m.Rules)))
	for _, rule := range m.Rules {
		w.WriteCString(rule.Name)
		w.WriteCString(rule.Value)
	}
	return w.Bytes()
}
