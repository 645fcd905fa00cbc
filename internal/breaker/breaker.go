// Package breaker implements a per-dependency circuit breaker. Each
// protected dependency gets its own Breaker, owned by a Registry that
// is constructed at startup and passed to whoever makes outbound
// calls; breaker state is process-local.
package breaker

import (
	"sync"
	"time"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
)

// State is the breaker's position in its lifecycle.
type State int

const (
	// Closed passes calls through while counting consecutive failures.
	Closed State = iota
	// Open fails calls fast until the recovery timeout elapses.
	Open
	// HalfOpen permits one trial call to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Defaults applied when a config value is zero.
const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 60 * time.Second
)

// Breaker guards calls to a single named dependency. All state is
// protected by one mutex since concurrent requests report outcomes
// simultaneously.
type Breaker struct {
	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	mu              sync.Mutex
	state           State
	failureCount    int
	lastFailureTime time.Time
	now             func() time.Time // injectable clock
}

// New constructs a breaker for the named dependency. Zero values fall
// back to the package defaults.
func New(name string, failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = DefaultRecoveryTimeout
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            Closed,
		now:              time.Now,
	}
}

// WithClock overrides the breaker clock. Tests only.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.now = now
	return b
}

// Do executes fn under breaker protection. While Open it returns a
// dependency-unavailable error immediately without invoking fn; after
// the recovery timeout one trial call is let through and its outcome
// decides between Closed and Open.
func (b *Breaker) Do(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the consecutive-failure counter.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open {
		if b.now().Sub(b.lastFailureTime) < b.recoveryTimeout {
			return apperror.Unavailable(b.name)
		}
		b.state = HalfOpen
		logger.Info("circuit breaker half-open", map[string]any{"dependency": b.name})
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state == HalfOpen {
			logger.Info("circuit breaker closed", map[string]any{"dependency": b.name})
		}
		b.state = Closed
		b.failureCount = 0
		return
	}
	b.failureCount++
	b.lastFailureTime = b.now()
	if b.state == HalfOpen || b.failureCount >= b.failureThreshold {
		if b.state != Open {
			logger.Warn("circuit breaker opened", map[string]any{
				"dependency":    b.name,
				"failure_count": b.failureCount,
			})
		}
		b.state = Open
	}
}

// Registry owns one breaker per logical dependency name. It is built
// at process startup and handed by reference to the components that
// need it; there is no package-level instance.
type Registry struct {
	mu               sync.Mutex
	breakers         map[string]*Breaker
	failureThreshold int
	recoveryTimeout  time.Duration
}

// NewRegistry constructs a registry whose breakers share the given
// threshold and recovery timeout.
func NewRegistry(failureThreshold int, recoveryTimeout time.Duration) *Registry {
	return &Registry{
		breakers:         make(map[string]*Breaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// Get returns the breaker for the named dependency, creating it on
// first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = New(name, r.failureThreshold, r.recoveryTimeout)
		r.breakers[name] = b
	}
	return b
}

// States reports the state of every registered breaker, for the
// health/diagnostics endpoint.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State().String()
	}
	return out
}
