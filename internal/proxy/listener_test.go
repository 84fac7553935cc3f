package proxy

import (
	"testing"

	"github.com/queryshield/a2sproxy/internal/a2s"
)

func TestGetResponseFor_InfoAlwaysFromCache(t *testing.T) {
	cache := NewResponseCache()
	cache.Set(KeyInfo, []byte("info-bytes"))

	raw, hit, echo := getResponseFor(a2s.InfoRequest{Payload: a2s.DefaultInfoPayload}, cache, 555)
	if !hit || string(raw) != "info-bytes" || echo != nil {
		t.Fatalf("got raw=%q hit=%v echo=%v", raw, hit, echo)
	}
}

func TestGetResponseFor_PlayersWrongChallengeEchoes(t *testing.T) {
	cache := NewResponseCache()
	cache.Set(KeyPlayers, []byte("players-bytes"))

	_, hit, echo := getResponseFor(a2s.PlayersRequest{Challenge: a2s.EmptyChallenge}, cache, 555)
	if hit {
		t.Fatalf("expected no cache hit without correct challenge")
	}
	resp, ok := echo.(a2s.GetChallengeResponse)
	if !ok || resp.Challenge != 555 {
		t.Fatalf("got %+v", echo)
	}
}

func TestGetResponseFor_PlayersCorrectChallengeHitsCache(t *testing.T) {
	cache := NewResponseCache()
	cache.Set(KeyPlayers, []byte("players-bytes"))

	raw, hit, echo := getResponseFor(a2s.PlayersRequest{Challenge: 555}, cache, 555)
	if !hit || string(raw) != "players-bytes" || echo != nil {
		t.Fatalf("got raw=%q hit=%v echo=%v", raw, hit, echo)
	}
}

func TestGetResponseFor_RulesCacheMissDropsSilently(t *testing.T) {
	cache := NewResponseCache()
	raw, hit, echo := getResponseFor(a2s.RulesRequest{Challenge: 555}, cache, 555)
	if hit || raw != nil || echo != nil {
		t.Fatalf("expected total miss, got raw=%q hit=%v echo=%v", raw, hit, echo)
	}
}
