package a2s

import "testing"

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	body, err := Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return got
}

func TestInfoRequestRoundTrip(t *testing.T) {
	in := InfoRequest{Payload: DefaultInfoPayload, Challenge: EmptyChallenge}
	got := roundTrip(t, in)
	out, ok := got.(InfoRequest)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if out.Payload != in.Payload {
		t.Fatalf("got %q want %q", out.Payload, in.Payload)
	}
	if out.Challenge != EmptyChallenge {
		t.Fatalf("got challenge %d want %d", out.Challenge, EmptyChallenge)
	}
}

func TestInfoRequestRoundTripWithChallenge(t *testing.T) {
	in := InfoRequest{Payload: DefaultInfoPayload, Challenge: 0x12345678}
	got := roundTrip(t, in)
	out, ok := got.(InfoRequest)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if out.Challenge != in.Challenge {
		t.Fatalf("got challenge %d want %d", out.Challenge, in.Challenge)
	}
}

func TestInfoResponseRoundTrip(t *testing.T) {
	in := InfoResponse{
		Protocol:   0x11,
		Name:       "My Server",
		Map:        "de_dust2",
		Folder:     "csgo",
		Game:       "Counter-Strike: Global Offensive",
		AppID:      730,
		Players:    4,
		MaxPlayers: 10,
		Bots:       0,
		ServerType: 'd',
		Env:        'l',
		Visibility: 0,
		VAC:        1,
		Version:    "1.0.0.0",
	}
	got := roundTrip(t, in)
	out, ok := got.(InfoResponse)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if out.Name != in.Name || out.Map != in.Map || out.AppID != in.AppID {
		t.Fatalf("got %+v want %+v", out, in)
	}
}

func TestPlayersResponseRoundTrip(t *testing.T) {
	in := PlayersResponse{Players: []Player{
		{Index: 0, Name: "alice", Score: 12, Duration: 101.5},
		{Index: 1, Name: "bob", Score: 3, Duration: 20},
	}}
	got := roundTrip(t, in)
	out, ok := got.(PlayersResponse)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if len(out.Players) != 2 || out.Players[0].Name != "alice" {
		t.Fatalf("got %+v", out)
	}
}

func TestPlayersResponse_TruncatedArrayTolerated(t *testing.T) {
	w := NewWriter()
	w.WriteByte(byte(KindPlayersResponse))
	w.WriteByte(2) // claims two players
	w.WriteByte(0)
	w.WriteCString("alice")
	w.WriteInt32LE(12)
	w.WriteFloat32LE(101.5)
	// second player cut off mid-record
	w.WriteByte(1)
	w.WriteCString("bob")

	got, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("expected tolerant decode, got err: %v", err)
	}
	out := got.(PlayersResponse)
	if len(out.Players) != 1 {
		t.Fatalf("got %d players, want 1 surviving", len(out.Players))
	}
}

func TestRulesResponseRoundTrip(t *testing.T) {
	in := RulesResponse{Rules: []Rule{
		{Name: "mp_friendlyfire", Value: "0"},
		{Name: "sv_gravity", Value: "800"},
	}}
	got := roundTrip(t, in)
	out, ok := got.(RulesResponse)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if len(out.Rules) != 2 || out.Rules[1].Value != "800" {
		t.Fatalf("got %+v", out)
	}
}

func TestChallengeRequestRoundTrip(t *testing.T) {
	in := PlayersRequest{Challenge: EmptyChallenge}
	got := roundTrip(t, in)
	out, ok := got.(PlayersRequest)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if out.Challenge != EmptyChallenge {
		t.Fatalf("got %d", out.Challenge)
	}
}

func TestGetChallengeResponseRoundTrip(t *testing.T) {
	in := GetChallengeResponse{Challenge: 123456}
	got := roundTrip(t, in)
	out, ok := got.(GetChallengeResponse)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if out.Challenge != 123456 {
		t.Fatalf("got %d", out.Challenge)
	}
}

func TestDecode_UnrecognizedTag(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err == nil {
		t.Fatalf("expected ErrBrokenMessage")
	}
}

func TestDecode_EmptyBody(t *testing.T) {
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected ErrBufferExhausted")
	}
}
