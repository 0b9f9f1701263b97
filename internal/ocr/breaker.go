package ocr

import (
	"errors"
	"sync"
	"time"

	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// BreakerState is one of the three circuit-breaker states.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is returned by Call without invoking fn when the breaker
// is open and the reset timeout has not yet elapsed.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker is a process-wide circuit breaker guarding the remote OCR
// service. No equivalent library exists among the available dependencies
// for this exact closed/open/half_open shape, so the state machine is
// hand-rolled behind a mutex.
type Breaker struct {
	failMax      int
	resetTimeout time.Duration
	logger       *logging.Logger

	mu          sync.Mutex
	state       BreakerState
	failures    int
	openedAt    time.Time
}

// NewBreaker builds a Breaker that opens after failMax consecutive
// failures and attempts a half-open probe after resetTimeout has
// elapsed.
func NewBreaker(failMax int, resetTimeout time.Duration) *Breaker {
	if failMax <= 0 {
		failMax = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 60 * time.Second
	}
	return &Breaker{
		failMax:      failMax,
		resetTimeout: resetTimeout,
		state:        StateClosed,
		logger:       logging.NewLogger("CircuitBreaker"),
	}
}

// State returns the breaker's current state, promoting open->half_open
// first if the reset timeout has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.logger.Info("breaker transitioning to half_open")
	}
}

// Call runs fn through the breaker. When open (and not yet eligible for
// a half-open probe), fn is never invoked and ErrBreakerOpen is returned
// so the caller can fall straight to its fallback path.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	b.maybeHalfOpenLocked()
	if b.state == StateOpen {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.failMax {
			b.state = StateOpen
			b.openedAt = time.Now()
			b.logger.Warn("breaker opened", "failures", b.failures)
		}
		return err
	}

	if b.state == StateHalfOpen {
		b.logger.Info("breaker probe succeeded, closing")
	}
	b.state = StateClosed
	b.failures = 0
	return nil
}
