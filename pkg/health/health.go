// Package health implements liveness and readiness probes for the API
// server. Probes run on background tickers and use consecutive-failure and
// consecutive-success thresholds so a single flaky check does not flap the
// reported state.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component. Nil means healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// probe is one registered check with its runtime state. The counters are
// touched only by the single ticker goroutine; ok and lastErr are shared
// with HTTP handlers and use atomics.
type probe struct {
	kind    probeKind
	name    string
	timeout time.Duration
	check   CheckFunc

	failAfter    int
	recoverAfter int

	ok      atomic.Bool
	lastErr atomic.Pointer[error]

	fails     int
	successes int
}

func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.successes = 0
		p.fails++
		if p.fails >= p.failAfter {
			p.ok.Store(false)
		}
		return
	}
	p.fails = 0
	p.successes++
	if p.successes >= p.recoverAfter {
		p.ok.Store(true)
	}
}

func (p *probe) failure() string {
	if p.ok.Load() {
		return ""
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error()
	}
	return "check is unhealthy"
}

// Service runs the registered probes and serves their state over HTTP.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New creates a probe service. It starts not-ready; call SetReady(true)
// after initialization completes.
func New() *Service {
	return &Service{}
}

func (s *Service) add(kind probeKind, name string, timeout time.Duration, check CheckFunc) {
	p := &probe{
		kind:         kind,
		name:         name,
		timeout:      timeout,
		check:        check,
		failAfter:    3,
		recoverAfter: 1,
	}
	// Healthy until the failure threshold says otherwise.
	p.ok.Store(true)

	s.mu.Lock()
	s.probes = append(s.probes, p)
	s.mu.Unlock()
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted, such as a goroutine leak detector.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(liveness, name, timeout, check)
}

// AddReadinessCheck registers a check that decides whether the service may
// receive traffic, such as database connectivity.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(readiness, name, timeout, check)
}

// Start launches one goroutine per registered probe, each re-running its
// check at the given interval until the context is cancelled or Stop is
// called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, len(s.probes))
	copy(probes, s.probes)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.run(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Graceful shutdown sets it to
// false so load balancers stop routing before the listener closes.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, p := range s.snapshot(readiness) {
		if !p.ok.Load() {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(kind probeKind) []*probe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*probe, 0, len(s.probes))
	for _, p := range s.probes {
		if p.kind == kind {
			out = append(out, p)
		}
	}
	return out
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while every liveness probe passes, 503
// with per-check details otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, s.failures(liveness))
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// every readiness probe passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := s.failures(readiness)
	if !s.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func (s *Service) failures(kind probeKind) map[string]string {
	failures := make(map[string]string)
	for _, p := range s.snapshot(kind) {
		if msg := p.failure(); msg != "" {
			failures[p.name] = msg
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
