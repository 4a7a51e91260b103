// Package resilience provides the failover primitives used by the evaluation
// pipeline: a three-state circuit [Breaker] and a [Chain] that walks a list of
// candidate backends until one produces a usable result.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and its
// cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("breaker open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards every call.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrBreakerOpen] until the cooldown
	// elapses.
	BreakerOpen

	// BreakerProbing admits a small quota of calls after the cooldown. All of
	// them succeeding closes the breaker; any failure re-opens it.
	BreakerProbing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero-value fields get defaults.
type BreakerConfig struct {
	// Name labels the breaker in log output.
	Name string

	// Trip is the number of consecutive failures that opens the breaker.
	// Default: 3.
	Trip int

	// Cooldown is how long an open breaker rejects calls before probing.
	// Default: 45s.
	Cooldown time.Duration

	// Probes is how many successful probe calls close the breaker again.
	// Default: 2.
	Probes int
}

// Breaker is a consecutive-failure circuit breaker. A tripped breaker lets the
// caller skip a backend that is known to be down instead of paying its timeout
// on every request.
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probeOK  int
}

// NewBreaker creates a Breaker from cfg, filling in defaults for zero fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 45 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 2
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
	}
}

// Do runs fn unless the breaker is open, and feeds the outcome back into the
// breaker's state.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
	} else {
		b.onSuccess()
	}
	return err
}

// admit decides whether a call may proceed, transitioning open → probing when
// the cooldown has elapsed.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if time.Since(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = BreakerProbing
		b.probeOK = 0
		slog.Info("breaker probing", "name", b.name)
	}
	return nil
}

func (b *Breaker) onFailure() {
	if b.state == BreakerProbing {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		slog.Warn("breaker re-opened", "name", b.name)
		return
	}
	b.failures++
	if b.failures >= b.trip {
		b.state = BreakerOpen
		b.openedAt = time.Now()
		slog.Warn("breaker opened", "name", b.name, "failures", b.failures)
	}
}

func (b *Breaker) onSuccess() {
	if b.state == BreakerProbing {
		b.probeOK++
		if b.probeOK >= b.probes {
			b.state = BreakerClosed
			b.failures = 0
			slog.Info("breaker closed", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State reports the breaker's current state. An open breaker whose cooldown
// has elapsed reports [BreakerProbing]; the transition itself happens on the
// next [Breaker.Do].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerProbing
	}
	return b.state
}

// Reset forces the breaker closed and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probeOK = 0
}
