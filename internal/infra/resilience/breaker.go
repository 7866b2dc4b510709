// Package resilience isolates failing outbound destinations so one dead
// endpoint cannot slow delivery to the healthy ones.
package resilience

import (
	"net/url"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the per-target circuit breakers.
//
// MaxRequests bounds the probes allowed while half-open. Interval is the
// closed-state period after which counters reset. Timeout is how long an open
// breaker waits before probing again. A breaker trips once at least
// MinRequests calls were observed and the failure ratio reaches FailureRatio.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  5,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	def := DefaultBreakerConfig()
	if c.MaxRequests == 0 {
		c.MaxRequests = def.MaxRequests
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.FailureRatio <= 0 || c.FailureRatio > 1 {
		c.FailureRatio = def.FailureRatio
	}
	if c.MinRequests == 0 {
		c.MinRequests = def.MinRequests
	}
	return c
}

// BreakerGroup maintains one circuit breaker per delivery target. Targets are
// independent: a calendar endpoint tripping its breaker does not affect alert
// webhooks or the accounting API.
type BreakerGroup struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker

	onStateChange func(target, from, to string)
}

func NewBreakerGroup(cfg BreakerConfig) *BreakerGroup {
	return &BreakerGroup{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// OnStateChange registers a callback fired on every breaker transition.
// Register before the first Do call; the callback is captured when a
// target's breaker is created.
func (g *BreakerGroup) OnStateChange(fn func(target, from, to string)) {
	g.onStateChange = fn
}

// Do runs fn through the breaker for target. While the breaker is open the
// call fails immediately with gobreaker.ErrOpenState and fn is not invoked;
// callers treat that like any other delivery failure.
func (g *BreakerGroup) Do(target string, fn func() error) error {
	_, err := g.breaker(target).Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// State reports the breaker state for target, creating the breaker if it
// does not exist yet.
func (g *BreakerGroup) State(target string) gobreaker.State {
	return g.breaker(target).State()
}

func (g *BreakerGroup) breaker(target string) *gobreaker.CircuitBreaker {
	g.mu.RLock()
	cb, ok := g.breakers[target]
	g.mu.RUnlock()
	if ok {
		return cb
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if cb, ok = g.breakers[target]; ok {
		return cb
	}

	cfg := g.cfg
	onStateChange := g.onStateChange
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        target,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if onStateChange != nil {
				onStateChange(name, from.String(), to.String())
			}
		},
	})
	g.breakers[target] = cb
	return cb
}

// TargetForURL reduces a delivery URL to its breaker key. Scheme and host are
// enough: when a service is down, every path on it is down.
func TargetForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
