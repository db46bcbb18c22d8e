// Package health serves the bot's liveness and readiness endpoints on the
// ops listener. /healthz answers 200 whenever the process can serve HTTP at
// all; /readyz runs the registered checkers (database pool, provider chain)
// and answers 503 with per-check detail until every one passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds each readiness check individually so one stuck
// dependency cannot hold the endpoint open.
const checkTimeout = 5 * time.Second

// Checker is one named dependency check. Check returns nil when the
// dependency can serve the bot, and must respect context cancellation.
type Checker struct {
	// Name keys the check in the JSON response, e.g. "database".
	Name string

	Check func(ctx context.Context) error
}

// result is the response body shape shared by both endpoints.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The checker list is fixed at
// construction, so the handler needs no locking.
type Handler struct {
	checkers []Checker
}

// New creates a Handler that evaluates the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz reports liveness. It never fails: a process that reached this
// handler can serve HTTP.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker, each under its own checkTimeout derived from
// the request context, and reports 503 when any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := result{Status: "ok", Checks: make(map[string]string, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, res)
}

// Register mounts both endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
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
