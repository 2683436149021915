package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned while the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

type Settings struct {
	Name string
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a trial request.
	ResetTimeout time.Duration
}

// CircuitBreaker trips after consecutive failures and lets a trial request through
// once the reset timeout has passed. One success closes it again.
type CircuitBreaker struct {
	name      string
	threshold int
	reset     time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
}

func New(settings Settings) *CircuitBreaker {
	threshold := settings.FailureThreshold
	if threshold <= 0 {
		threshold = 5
	}
	reset := settings.ResetTimeout
	if reset <= 0 {
		reset = 30 * time.Second
	}
	return &CircuitBreaker{
		name:      settings.Name,
		threshold: threshold,
		reset:     reset,
		state:     StateClosed,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailure) < cb.reset {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.failures >= cb.threshold || cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return err
	}

	cb.state = StateClosed
	cb.failures = 0
	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
