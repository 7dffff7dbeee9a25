package http

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 3 * time.Second

// HealthChecker is a dependency that can be pinged.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// NamedCheck is a dependency probed by the readiness and health endpoints.
// An Optional dependency that fails degrades the service without taking it
// out of rotation: assignment locking needs Redis, reporting does not.
type NamedCheck struct {
	Name     string
	Checker  HealthChecker
	Optional bool
}

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler serves liveness, readiness and a detailed health report.
type HealthHandler struct {
	checks    []NamedCheck
	startTime time.Time
	version   string
}

func NewHealthHandler(version string, checks ...NamedCheck) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string           `json:"status"`
	Timestamp  string           `json:"timestamp"`
	Version    string           `json:"version,omitempty"`
	Uptime     string           `json:"uptime,omitempty"`
	Checks     map[string]Check `json:"checks,omitempty"`
	Goroutines int              `json:"goroutines,omitempty"`
	HeapBytes  uint64           `json:"heap_bytes,omitempty"`
}

// Check is the outcome of probing one dependency.
type Check struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// RegisterRoutes mounts the probe endpoints.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness never touches dependencies.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: formatTime(time.Now()),
	})
}

// HandleReadiness returns 503 only when a required dependency is down.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := h.report(r.Context())
	WriteJSON(w, statusCode(resp.Status), resp)
}

// HandleHealth adds runtime stats to the readiness report.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := h.report(r.Context())

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	resp.Goroutines = runtime.NumGoroutine()
	resp.HeapBytes = mem.HeapAlloc

	WriteJSON(w, statusCode(resp.Status), resp)
}

func (h *HealthHandler) report(ctx context.Context) HealthResponse {
	checks := h.runChecks(ctx)

	status := statusHealthy
	for _, c := range checks {
		if c.Status == statusHealthy {
			continue
		}
		if !c.Optional {
			status = statusUnhealthy
			break
		}
		status = statusDegraded
	}

	return HealthResponse{
		Status:    status,
		Timestamp: formatTime(time.Now()),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
}

// runChecks probes every dependency concurrently under one deadline.
func (h *HealthHandler) runChecks(ctx context.Context) map[string]Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(h.checks))
		g       errgroup.Group
	)
	for _, nc := range h.checks {
		g.Go(func() error {
			result := probe(ctx, nc.Checker)
			result.Optional = nc.Optional
			mu.Lock()
			results[nc.Name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func probe(ctx context.Context, checker HealthChecker) Check {
	if checker == nil {
		return Check{Status: statusUnhealthy, Message: "not configured"}
	}

	start := time.Now()
	err := checker.Ping(ctx)
	latency := time.Since(start).Round(time.Microsecond).String()

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency}
	}
	return Check{Status: statusHealthy, Latency: latency}
}

func statusCode(status string) int {
	if status == statusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
