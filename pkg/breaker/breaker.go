// Package breaker implements a count-based circuit breaker that gates
// outbound requests to a failing origin. The breaker is shared by all
// concurrent callers of one client; every method takes its internal lock
// for the duration of the state update only, never across I/O.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed admits all requests.
	StateClosed State = iota

	// StateOpen rejects all requests until the reset timeout elapses.
	StateOpen

	// StateHalfOpen admits a bounded number of trial requests.
	StateHalfOpen
)

// String returns the state name for logging and metrics labels.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Metrics holds per-breaker counters. Consecutive counters reset on every
// state transition; totals are cleared only by Reset.
type Metrics struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastFailure          time.Time
	TotalCalls           int64
	TotalFailures        int64
}

// StatusCoder is implemented by errors that carry an HTTP status code.
// The breaker uses it to decide whether a failure counts against the
// failure threshold (see Config.IncludedStatusCodes).
type StatusCoder interface {
	HTTPStatus() (int, bool)
}

// Config holds the immutable breaker configuration.
type Config struct {
	// FailureThreshold is the number of consecutive counted failures that
	// trips a closed breaker.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes that closes
	// a half-open breaker.
	SuccessThreshold int

	// ResetTimeout is how long an open breaker waits before admitting
	// trial requests.
	ResetTimeout time.Duration

	// HalfOpenMaxCalls caps the number of trial calls in flight while the
	// breaker is half-open. Admission attempts beyond the cap are rejected
	// like an open breaker.
	HalfOpenMaxCalls int

	// IncludedStatusCodes lists the HTTP status codes that count against
	// the failure threshold. A failure carrying a status outside this set
	// is recorded as a success for breaker purposes.
	IncludedStatusCodes []int

	// Excluded reports whether an error must be ignored entirely: no
	// metric update, no state transition.
	Excluded func(error) bool

	// FailureRateThreshold and SamplingDuration are accepted for
	// compatibility with the configuration surface but are not evaluated;
	// tripping is count-based only.
	FailureRateThreshold float64
	SamplingDuration     time.Duration
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:     5,
		SuccessThreshold:     2,
		ResetTimeout:         30 * time.Second,
		HalfOpenMaxCalls:     3,
		IncludedStatusCodes:  []int{500, 502, 503, 504},
		FailureRateThreshold: 0.5,
		SamplingDuration:     60 * time.Second,
	}
}

// Breaker is a three-state circuit breaker. The zero value is not usable;
// create instances with New.
type Breaker struct {
	mu sync.Mutex

	cfg      Config
	included map[int]struct{}

	state            State
	metrics          Metrics
	openedAt         time.Time
	halfOpenInFlight int

	now func() time.Time
}

// New creates a breaker in the closed state. Zero config fields fall back
// to the defaults.
func New(cfg Config) *Breaker {
	def := DefaultConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if cfg.IncludedStatusCodes == nil {
		cfg.IncludedStatusCodes = def.IncludedStatusCodes
	}

	included := make(map[int]struct{}, len(cfg.IncludedStatusCodes))
	for _, code := range cfg.IncludedStatusCodes {
		included[code] = struct{}{}
	}

	b := &Breaker{
		cfg:      cfg,
		included: included,
		state:    StateClosed,
		now:      time.Now,
	}
	stateGauge.Set(float64(StateClosed))
	return b
}

// Allow reports whether a request may proceed. In the open state it
// performs the lazy transition to half-open once the reset timeout has
// elapsed; in the half-open state it reserves one of the bounded trial
// slots. Callers that were admitted must report the outcome via
// RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.metrics.TotalCalls++
		return true

	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
			b.transitionTo(StateHalfOpen)
			b.halfOpenInFlight = 1
			b.metrics.TotalCalls++
			return true
		}
		rejectionsTotal.Inc()
		return false

	case StateHalfOpen:
		if b.halfOpenInFlight < b.cfg.HalfOpenMaxCalls {
			b.halfOpenInFlight++
			b.metrics.TotalCalls++
			return true
		}
		rejectionsTotal.Inc()
		return false

	default:
		return false
	}
}

// RecordSuccess reports a successful outcome for an admitted request.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseTrialSlot()
	b.recordSuccessLocked()
}

// RecordFailure reports a failed outcome for an admitted request. Errors
// matching the excluded predicate are ignored entirely; failures carrying
// a status code outside IncludedStatusCodes are recorded as successes for
// breaker purposes even though the call failed for the caller.
func (b *Breaker) RecordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseTrialSlot()

	if err != nil && b.cfg.Excluded != nil && b.cfg.Excluded(err) {
		return
	}

	if code, ok := statusOf(err); ok {
		if _, counted := b.included[code]; !counted {
			b.recordSuccessLocked()
			return
		}
	}

	b.recordFailureLocked()
}

// ForceOpen trips the breaker regardless of recorded outcomes.
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateOpen)
}

// ForceClose closes the breaker regardless of recorded outcomes.
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
}

// Reset closes the breaker and clears all metrics.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(StateClosed)
	b.metrics = Metrics{}
	b.halfOpenInFlight = 0
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a copy of the current metrics.
func (b *Breaker) Snapshot() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.metrics
}

func (b *Breaker) recordSuccessLocked() {
	switch b.state {
	case StateClosed:
		b.metrics.ConsecutiveFailures = 0
		b.metrics.ConsecutiveSuccesses++
	case StateHalfOpen:
		b.metrics.ConsecutiveSuccesses++
		if b.metrics.ConsecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

func (b *Breaker) recordFailureLocked() {
	b.metrics.LastFailure = b.now()
	b.metrics.TotalFailures++

	switch b.state {
	case StateClosed:
		b.metrics.ConsecutiveFailures++
		if b.metrics.ConsecutiveFailures >= b.cfg.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		// Any failure during a trial period re-opens the breaker and
		// discards accumulated successes.
		b.transitionTo(StateOpen)
	}
}

// releaseTrialSlot returns a half-open trial slot when an admitted call
// reports its outcome. Guarded against underflow: a call admitted while
// closed may report after a concurrent transition to half-open.
func (b *Breaker) releaseTrialSlot() {
	if b.state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
}

// transitionTo moves the breaker to the given state, resetting the
// consecutive counters. Open->Open keeps the original open timestamp.
func (b *Breaker) transitionTo(next State) {
	if b.state == StateOpen && next == StateOpen {
		return
	}

	b.state = next
	b.metrics.ConsecutiveFailures = 0
	b.metrics.ConsecutiveSuccesses = 0

	switch next {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.openedAt = time.Time{}
		b.halfOpenInFlight = 0
	case StateHalfOpen:
		b.halfOpenInFlight = 0
	}

	stateGauge.Set(float64(next))
	transitionsTotal.WithLabelValues(next.String()).Inc()
}

func statusOf(err error) (int, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0, false
}
