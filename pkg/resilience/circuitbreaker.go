// Package resilience provides retry with exponential backoff and per-host
// circuit breaking for outbound fetches.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while a key's circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current phase of one key's circuit.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls failure thresholds and recovery timing.
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

func defaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
	}
}

type circuit struct {
	state    State
	failures int
	lastFail time.Time
	probing  bool
}

// Breakers keeps an independent circuit per key, typically a host name, so
// one dead host does not stall fetches to the others. After FailureThreshold
// consecutive failures a key opens; once ResetTimeout has passed a single
// probe is let through.
type Breakers struct {
	cfg      BreakerConfig
	mu       sync.Mutex
	circuits map[string]*circuit
	now      func() time.Time
	logger   *slog.Logger
}

func NewBreakers(cfg BreakerConfig) *Breakers {
	defaults := defaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaults.ResetTimeout
	}
	return &Breakers{
		cfg:      cfg,
		circuits: make(map[string]*circuit),
		now:      time.Now,
		logger:   slog.Default().With("component", "circuit-breaker"),
	}
}

// Execute runs fn unless key's circuit is open, recording the outcome.
func (b *Breakers) Execute(key string, fn func() error) error {
	if err := b.before(key); err != nil {
		return err
	}
	err := fn()
	b.after(key, err)
	return err
}

// State returns key's current state; unknown keys are closed.
func (b *Breakers) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.circuits[key]; ok {
		return c.state
	}
	return StateClosed
}

func (b *Breakers) before(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[key]
	if !ok {
		return nil
	}
	switch c.state {
	case StateOpen:
		wait := b.cfg.ResetTimeout - b.now().Sub(c.lastFail)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, key, wait)
		}
		c.state = StateHalfOpen
		c.probing = true
		b.logger.Info("circuit half-open", "key", key)
	case StateHalfOpen:
		if c.probing {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, key)
		}
		c.probing = true
	}
	return nil
}

func (b *Breakers) after(key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[key]
	if err == nil {
		if ok {
			if c.state != StateClosed {
				b.logger.Info("circuit closed", "key", key)
			}
			delete(b.circuits, key)
		}
		return
	}
	if !ok {
		c = &circuit{}
		b.circuits[key] = c
	}
	c.lastFail = b.now()
	c.failures++
	c.probing = false
	switch c.state {
	case StateClosed:
		if c.failures >= b.cfg.FailureThreshold {
			c.state = StateOpen
			b.logger.Warn("circuit opened", "key", key, "consecutive_failures", c.failures)
		}
	case StateHalfOpen:
		c.state = StateOpen
		b.logger.Warn("circuit re-opened", "key", key)
	}
}
