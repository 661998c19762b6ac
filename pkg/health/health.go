// Package health exposes Kubernetes-style liveness and readiness probes for
// the storefront API.
//
// Each registered probe runs in its own background goroutine at a fixed
// interval. Probes carry failure/success thresholds so a single slow
// database ping does not flap the pod out of the load balancer: a probe
// flips unhealthy only after failureThreshold consecutive failures, and
// recovers after successThreshold consecutive passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// probe holds the configuration and runtime state for a single check.
//
// Concurrency model: runOnce is called from exactly one goroutine (the
// ticker loop), so the consecutive counters need no synchronization. The
// healthy flag and lastErr are read by HTTP handlers from arbitrary
// goroutines and use atomics.
type probe struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

func (p *probe) lastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// runOnce executes the check and applies the thresholds. Must be called
// from a single goroutine.
func (p *probe) runOnce(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.consecutiveOK = 0
		p.consecutiveFails++
		if p.consecutiveFails >= p.failureThreshold {
			p.healthy.Store(false)
		}
	} else {
		p.consecutiveFails = 0
		p.consecutiveOK++
		if p.consecutiveOK >= p.successThreshold {
			p.healthy.Store(true)
		}
	}
}

// Health manages the liveness and readiness probes of the service.
type Health struct {
	ready atomic.Bool

	// mu protects the probe slices and cancel. Handlers snapshot the slices
	// under RLock and release immediately.
	mu              sync.RWMutex
	livenessProbes  []*probe
	readinessProbes []*probe
	cancel          context.CancelFunc
}

// New creates a Health instance. The service starts not ready; call
// SetReady(true) once initialization is done.
func New() *Health {
	return &Health{}
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: 3,
		successThreshold: 1,
	}
	p.healthy.Store(true) // assume healthy until proven otherwise
	return p
}

// AddLivenessCheck registers a liveness probe: is the process itself still
// functioning (goroutine count, GC pauses).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessProbes = append(h.livenessProbes, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a readiness probe: can the service usefully
// take traffic (database reachable, caches warm).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessProbes = append(h.readinessProbes, newProbe(name, timeout, check))
}

// Start launches one goroutine per registered probe, each running at the
// given interval until the context is cancelled or Stop is called.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.livenessProbes)+len(h.readinessProbes))
	probes = append(probes, h.livenessProbes...)
	probes = append(probes, h.readinessProbes...)
	h.mu.Unlock()

	for _, p := range probes {
		go probeLoop(ctx, p, interval)
	}
}

func probeLoop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// SetReady flips the manual readiness gate. Set to true after startup
// completes and to false at the beginning of graceful shutdown, so the load
// balancer drains the pod before connections are closed.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service should receive traffic: the manual
// gate is open and every readiness probe is passing.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.readinessProbes
	h.mu.RUnlock()

	for _, p := range probes {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// RegisterRoutes mounts the probe endpoints on the mux.
func (h *Health) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /livez", h.LiveEndpoint)
	mux.HandleFunc("GET /readyz", h.ReadyEndpoint)
}

// statusResponse is the JSON body of the probe endpoints. Checks maps every
// probe name to "ok" or its last error, so an operator hitting /readyz sees
// the state of each dependency, not only the broken ones.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// per-probe detail otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.livenessProbes))
	copy(probes, h.livenessProbes)
	h.mu.RUnlock()

	writeStatus(w, probeStates(probes))
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := make([]*probe, len(h.readinessProbes))
	copy(probes, h.readinessProbes)
	h.mu.RUnlock()

	states := probeStates(probes)
	if !ready {
		states["_gate"] = "service is not ready"
	}
	writeStatus(w, states)
}

// probeStates maps each probe to "ok" or its stored last error. The stored
// error is used rather than re-running the check, so probe endpoints stay
// cheap under polling.
func probeStates(probes []*probe) map[string]string {
	states := make(map[string]string, len(probes))
	for _, p := range probes {
		switch {
		case p.isHealthy():
			states[p.name] = "ok"
		case p.lastError() != nil:
			states[p.name] = p.lastError().Error()
		default:
			states[p.name] = "check is unhealthy"
		}
	}
	return states
}

func writeStatus(w http.ResponseWriter, states map[string]string) {
	resp := statusResponse{Status: "ok", Checks: states}
	status := http.StatusOK
	for _, s := range states {
		if s != "ok" {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// The status code is already on the wire; an encode failure here means
	// the client went away.
	_ = json.NewEncoder(w).Encode(resp)
}
