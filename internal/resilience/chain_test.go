package resilience

import (
	"errors"
	"testing"
	"time"
)

func newTestChain(names ...string) *Chain[string] {
	c := NewChain[string](BreakerConfig{Trip: 1, Cooldown: time.Hour})
	for _, n := range names {
		c.Add(n, n)
	}
	return c
}

func TestTryReturnsFirstSuccess(t *testing.T) {
	c := newTestChain("a", "b", "c")

	got, err := Try(c, func(name, v string) (string, error) {
		return "from-" + v, nil
	})
	if err != nil {
		t.Fatalf("Try returned %v", err)
	}
	if got != "from-a" {
		t.Fatalf("got %q, want %q", got, "from-a")
	}
}

func TestTryFallsThroughToNextLink(t *testing.T) {
	c := newTestChain("a", "b", "c")

	var attempts []string
	got, err := Try(c, func(name, v string) (string, error) {
		attempts = append(attempts, name)
		if v != "c" {
			return "", errBoom
		}
		return "from-c", nil
	})
	if err != nil {
		t.Fatalf("Try returned %v", err)
	}
	if got != "from-c" {
		t.Fatalf("got %q, want %q", got, "from-c")
	}
	if len(attempts) != 3 || attempts[0] != "a" || attempts[1] != "b" || attempts[2] != "c" {
		t.Fatalf("attempt order = %v, want [a b c]", attempts)
	}
}

func TestTryExhaustedWrapsLastError(t *testing.T) {
	c := newTestChain("a", "b")

	_, err := Try(c, func(name, v string) (string, error) {
		return "", errBoom
	})
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("got %v, want ErrChainExhausted", err)
	}
}

func TestTrySkipsOpenBreakers(t *testing.T) {
	c := newTestChain("a", "b")

	// Trip a's breaker (Trip: 1).
	_, err := Try(c, func(name, v string) (string, error) {
		if v == "a" {
			return "", errBoom
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("first Try returned %v", err)
	}

	var attempts []string
	got, err := Try(c, func(name, v string) (string, error) {
		attempts = append(attempts, name)
		return "ok-" + v, nil
	})
	if err != nil {
		t.Fatalf("second Try returned %v", err)
	}
	if got != "ok-b" {
		t.Fatalf("got %q, want %q (a should be skipped)", got, "ok-b")
	}
	if len(attempts) != 1 || attempts[0] != "b" {
		t.Fatalf("attempts = %v, want [b]", attempts)
	}
}

func TestTryEmptyChain(t *testing.T) {
	c := NewChain[string](BreakerConfig{})
	_, err := Try(c, func(name, v string) (string, error) { return v, nil })
	if !errors.Is(err, ErrChainExhausted) {
		t.Fatalf("got %v, want ErrChainExhausted", err)
	}
}
