package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingChecker struct {
	ok    bool
	err   error
	calls int
}

func (c *countingChecker) IsMember(context.Context, int64) (bool, error) {
	c.calls++
	return c.ok, c.err
}

func TestAllowedCachesVerdict(t *testing.T) {
	c := &countingChecker{ok: true}
	g := New(c)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !g.Allowed(ctx, 1) {
			t.Fatal("Allowed = false, want true")
		}
	}
	if c.calls != 1 {
		t.Errorf("checker called %d times, want 1 (cached)", c.calls)
	}
}

func TestAllowedCacheExpires(t *testing.T) {
	c := &countingChecker{ok: true}
	g := New(c)
	current := time.Now()
	g.now = func() time.Time { return current }
	ctx := context.Background()

	g.Allowed(ctx, 1)
	current = current.Add(DefaultTTL + time.Second)
	g.Allowed(ctx, 1)

	if c.calls != 2 {
		t.Errorf("checker called %d times, want 2 after TTL expiry", c.calls)
	}
}

func TestLookupErrorMeansDenied(t *testing.T) {
	c := &countingChecker{err: errors.New("api down")}
	g := New(c)

	if g.Allowed(context.Background(), 1) {
		t.Error("Allowed = true on lookup failure, want false")
	}
}

func TestRecheckBypassesCache(t *testing.T) {
	c := &countingChecker{ok: false}
	g := New(c)
	ctx := context.Background()

	if g.Allowed(ctx, 1) {
		t.Fatal("unexpected pass")
	}
	// User subscribes; cached verdict is still negative.
	c.ok = true
	if g.Allowed(ctx, 1) {
		t.Fatal("cache unexpectedly refreshed")
	}
	if !g.Recheck(ctx, 1) {
		t.Error("Recheck = false after subscribing, want true")
	}
}

func TestVerdictsArePerUser(t *testing.T) {
	c := &countingChecker{ok: true}
	g := New(c)
	ctx := context.Background()

	g.Allowed(ctx, 1)
	g.Allowed(ctx, 2)
	if c.calls != 2 {
		t.Errorf("checker called %d times, want 2 for distinct users", c.calls)
	}
}
