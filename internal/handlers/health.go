package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "0.1.0"

var startedAt = time.Now()

// Check is the result of probing one dependency: "pass", "fail" or "skip".
type Check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func probe(ctx context.Context, p pinger) Check {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return Check{Status: "fail", Message: "connection failed"}
	}
	return Check{Status: "pass", Latency: time.Since(start).Round(time.Microsecond).String()}
}

// Health probes the document store and, when configured, Redis. Without Redis
// sync stays in-process, which is reported as a skipped check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": probe(ctx, h.store),
		"redis":    {Status: "skip", Message: "not configured"},
	}
	if h.redis != nil {
		checks["redis"] = probe(ctx, h.redis)
	}

	resp := HealthResponse{
		Status:    "healthy",
		Version:   version,
		Uptime:    time.Since(startedAt).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	for _, c := range checks {
		if c.Status == "fail" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			break
		}
	}

	h.JSON(w, status, resp)
}

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

// Root describes the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RootResponse{
		Name:    "slidr",
		Version: version,
		Docs:    h.publicURL + "/r/",
	})
}
