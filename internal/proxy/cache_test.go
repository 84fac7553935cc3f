package proxy

import (
	"context"
	"testing"
	"time"
)

func TestResponseCache_GetMiss(t *testing.T) {
	c := NewResponseCache()
	if _, ok := c.Get(KeyInfo); ok {
		t.Fatalf("expected miss on empty cache")
	}
}

func TestResponseCache_SetThenGet(t *testing.T) {
	c := NewResponseCache()
	c.Set(KeyInfo, []byte("hello"))
	got, ok := c.Get(KeyInfo)
	if !ok || string(got) != "hello" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestResponseCache_GetWait_UnblocksOnSet(t *testing.T) {
	c := NewResponseCache()
	c.armAwaitSignals([]CacheKey{KeyInfo})
	defer c.disarmAwaitSignals()

	done := make(chan error, 1)
	go func() {
		done <- c.GetWait(context.Background(), KeyInfo)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Set(KeyInfo, []byte("data"))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("GetWait did not unblock")
	}
}

func TestResponseCache_GetWait_AlreadyPopulated(t *testing.T) {
	c := NewResponseCache()
	c.Set(KeyInfo, []byte("data"))
	c.armAwaitSignals([]CacheKey{KeyInfo})
	defer c.disarmAwaitSignals()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.GetWait(ctx, KeyInfo); err != nil {
		t.Fatalf("expected immediate return, got %v", err)
	}
}

func TestResponseCache_GetWait_DeadlineElapses(t *testing.T) {
	c := NewResponseCache()
	c.armAwaitSignals([]CacheKey{KeyRules})
	defer c.disarmAwaitSignals()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.GetWait(ctx, KeyRules); err == nil {
		t.Fatalf("expected deadline error")
	}
}
