package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrChainExhausted is returned when every link in a [Chain] failed or had an
// open breaker.
var ErrChainExhausted = errors.New("all backends failed")

// link pairs one backend value with its own breaker.
type link[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain is an ordered list of interchangeable backends (model identifiers,
// provider instances) tried first to last. Each link carries an independent
// [Breaker] so a dead backend is skipped without probing it on every call.
//
// Chain is safe for concurrent use after construction; Add must not race with
// Try.
type Chain[T any] struct {
	links []link[T]
	cfg   BreakerConfig
}

// NewChain creates an empty Chain whose links share the breaker config cfg.
func NewChain[T any](cfg BreakerConfig) *Chain[T] {
	return &Chain[T]{cfg: cfg}
}

// Add appends a named backend to the end of the chain.
func (c *Chain[T]) Add(name string, value T) {
	bc := c.cfg
	bc.Name = name
	c.links = append(c.links, link[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Len reports the number of links in the chain.
func (c *Chain[T]) Len() int { return len(c.links) }

// Try runs fn against each link in order until one succeeds. Open-breaker
// links are skipped. If every link fails the last error is wrapped in
// [ErrChainExhausted].
//
// Try is a package-level function because Go methods cannot introduce the
// result type parameter R.
func Try[T, R any](c *Chain[T], fn func(name string, v T) (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	for i := range c.links {
		l := &c.links[i]
		var out R
		err := l.breaker.Do(func() error {
			var inner error
			out, inner = fn(l.name, l.value)
			return inner
		})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "backend", l.name)
			continue
		}
		slog.Warn("backend failed, trying next", "backend", l.name, "error", err)
	}
	return zero, fmt.Errorf("%w: %v", ErrChainExhausted, lastErr)
}
