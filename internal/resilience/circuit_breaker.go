package resilience

import "time"

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Requests fail immediately
	StateHalfOpen                     // One probe request is allowed
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker stops calling a failing service after a run of consecutive
// failures. It is not safe for concurrent use; the narrator calls the speech
// service from a single goroutine.
type CircuitBreaker struct {
	name         string
	maxFailures  int           // consecutive failures before opening; 0 disables the breaker
	resetTimeout time.Duration // 0 keeps the circuit open for the rest of the run

	state        CircuitState
	failureCount int
	lastFailTime time.Time

	requestCount      int64
	failureCountTotal int64
	rejectedCount     int64

	now func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

// Name returns the protected service name
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Allow reports whether a request may be made now. A rejected request is counted.
func (cb *CircuitBreaker) Allow() bool {
	if cb.maxFailures <= 0 {
		return true
	}

	switch cb.state {
	case StateClosed:
		return true

	case StateOpen:
		if cb.resetTimeout > 0 && cb.now().Sub(cb.lastFailTime) >= cb.resetTimeout {
			cb.state = StateHalfOpen
			return true
		}
		cb.rejectedCount++
		return false

	case StateHalfOpen:
		return true
	}

	return false
}

// RecordResult records the outcome of a request made after Allow
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.requestCount++

	if success {
		cb.failureCount = 0
		cb.state = StateClosed
		return
	}

	cb.failureCountTotal++
	cb.failureCount++
	cb.lastFailTime = cb.now()

	if cb.maxFailures <= 0 {
		return
	}
	// Any failure in half-open immediately reopens the circuit
	if cb.state == StateHalfOpen || cb.failureCount >= cb.maxFailures {
		cb.state = StateOpen
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	return cb.state
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() (state CircuitState, requestCount, failureCount, rejectedCount int64) {
	return cb.state, cb.requestCount, cb.failureCountTotal, cb.rejectedCount
}

// Reset closes the circuit and clears its statistics for a new run
func (cb *CircuitBreaker) Reset() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.lastFailTime = time.Time{}
	cb.requestCount = 0
	cb.failureCountTotal = 0
	cb.rejectedCount = 0
}
