// Package health provides the keepalive and probe HTTP handlers.
//
// Hosting platforms that idle out free instances ping the root path; /healthz
// is the liveness probe and /readyz reports readiness of the bot's backends.
// Probe responses are JSON with a top-level "status" and a per-check map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 5 * time.Second

// Check is a named readiness probe. Probe returns nil when the dependency is
// healthy; it must respect context cancellation.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type report struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the keepalive root, /healthz, and /readyz. Safe for
// concurrent use; the check list is fixed at construction.
type Handler struct {
	started time.Time
	checks  []Check
}

// New creates a Handler evaluating the given checks on each /readyz request.
func New(checks ...Check) *Handler {
	return &Handler{
		started: time.Now(),
		checks:  append([]Check(nil), checks...),
	}
}

// Root answers keepalive pings with a bare 200.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Healthz is the liveness probe. A process that can serve HTTP is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Readyz returns 200 only when every registered [Check] passes. Checks run
// sequentially, each with a [probeTimeout] deadline derived from the request
// context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]string, len(h.checks))
	ok := true

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.Probe(ctx)
		cancel()

		if err != nil {
			out[c.Name] = "fail: " + err.Error()
			ok = false
		} else {
			out[c.Name] = "ok"
		}
	}

	res := report{Status: "ok", Checks: out}
	status := http.StatusOK
	if !ok {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the keepalive and probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
