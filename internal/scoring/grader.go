package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/speakingzone/examiner/internal/observe"
	"github.com/speakingzone/examiner/internal/resilience"
	"github.com/speakingzone/examiner/pkg/provider/chat"
)

// graderTemperature keeps the grader near-deterministic.
const graderTemperature = 0.1

// Grader runs grading prompts through an ordered failover chain of model
// identifiers on a single [chat.Provider]. It is safe for concurrent use.
type Grader struct {
	provider chat.Provider
	models   *resilience.Chain[string]
	metrics  *observe.Metrics
}

// NewGrader creates a Grader that tries models in order. Each model gets its
// own circuit breaker so a dead model is skipped without a round trip.
func NewGrader(provider chat.Provider, models []string) *Grader {
	chain := resilience.NewChain[string](resilience.BreakerConfig{
		Trip:     3,
		Cooldown: time.Minute,
	})
	for _, m := range models {
		if strings.TrimSpace(m) == "" {
			continue
		}
		chain.Add(m, m)
	}
	return &Grader{
		provider: provider,
		models:   chain,
		metrics:  observe.DefaultMetrics(),
	}
}

// gradeJSON sends the system instruction plus a JSON-encoded payload and
// decodes the model's JSON reply into out. A model whose reply contains no
// parseable JSON counts as failed and the next model is tried.
func (g *Grader) gradeJSON(ctx context.Context, system string, payload any, out any) error {
	user, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("scoring: marshal payload: %w", err)
	}

	raw, err := resilience.Try(g.models, func(model, _ string) (string, error) {
		start := time.Now()
		content, err := g.provider.Complete(ctx, chat.Request{
			Model:       model,
			System:      system,
			User:        string(user),
			Temperature: graderTemperature,
		})
		g.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			g.metrics.RecordProviderRequest(ctx, model, "chat", "error")
			return "", err
		}
		g.metrics.RecordProviderRequest(ctx, model, "chat", "ok")

		doc, err := extractJSON(content)
		if err != nil {
			return "", fmt.Errorf("model %s: %w", model, err)
		}
		return doc, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("scoring: decode grader reply: %w", err)
	}
	return nil
}

// asInt coerces a loosely-typed JSON value to int. Grader models return
// numbers as ints, floats, or quoted strings interchangeably.
func asInt(v any, fallback int) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return int(f)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return int(f)
		}
	case int:
		return x
	}
	return fallback
}

// asFloat coerces a loosely-typed JSON value to float64, returning ok=false
// when no numeric reading exists.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, true
		}
	case int:
		return float64(x), true
	}
	return 0, false
}

// safeStrings converts a loosely-typed JSON list to at most limit non-blank
// strings.
func safeStrings(v any, limit int) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range list {
		s := strings.TrimSpace(fmt.Sprint(it))
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) >= limit {
			break
		}
	}
	return out
}
