// Package gate enforces the channel-subscription requirement. Membership
// lookups hit the platform API, so verdicts are cached briefly; the cache is
// deliberately short-lived so an unsubscribe locks the user out within
// seconds.
package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is how long a membership verdict is trusted.
const DefaultTTL = 5 * time.Second

// Checker answers whether a user is currently a member of the gate channel.
type Checker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
}

// Option configures a [Gate].
type Option func(*Gate)

// WithTTL overrides the verdict cache lifetime.
func WithTTL(d time.Duration) Option {
	return func(g *Gate) { g.ttl = d }
}

type entry struct {
	ok bool
	at time.Time
}

// Gate caches membership verdicts per user. Safe for concurrent use.
type Gate struct {
	checker Checker
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[int64]entry
}

// New creates a Gate over the given membership checker.
func New(c Checker, opts ...Option) *Gate {
	g := &Gate{
		checker: c,
		ttl:     DefaultTTL,
		now:     time.Now,
		cache:   make(map[int64]entry),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Allowed reports whether the user passes the gate, using a cached verdict
// when fresh. Lookup failures count as not subscribed.
func (g *Gate) Allowed(ctx context.Context, userID int64) bool {
	g.mu.Lock()
	if e, ok := g.cache[userID]; ok && g.now().Sub(e.at) <= g.ttl {
		g.mu.Unlock()
		return e.ok
	}
	g.mu.Unlock()

	ok, err := g.checker.IsMember(ctx, userID)
	if err != nil {
		slog.Warn("membership lookup failed", "user_id", userID, "error", err)
		ok = false
	}

	g.mu.Lock()
	g.cache[userID] = entry{ok: ok, at: g.now()}
	g.mu.Unlock()
	return ok
}

// Recheck drops the cached verdict and performs a fresh lookup. Used on the
// explicit "check my subscription" button so the user is never told stale
// news.
func (g *Gate) Recheck(ctx context.Context, userID int64) bool {
	g.Invalidate(userID)
	return g.Allowed(ctx, userID)
}

// Invalidate forgets the cached verdict for the user.
func (g *Gate) Invalidate(userID int64) {
	g.mu.Lock()
	delete(g.cache, userID)
	g.mu.Unlock()
}
