package usecase

import (
	"sync"
	"time"
)

// Binance enforces a request-weight limit of 6000 per minute and a
// switch-triggered 24h stats refresh costs 80 weight. 60 switches per
// window keeps the worst case at 4800, leaving headroom for the
// poller's own refresh cadence.
const (
	DefaultSwitchWindow = 60 * time.Second
	DefaultMaxSwitches  = 60
)

// RateGate is a sliding-window limiter guarding the pair-universe
// switch. Denied attempts are not queued or retried; the operator
// waits for the window to drain.
type RateGate struct {
	window time.Duration
	max    int

	mu       sync.Mutex
	attempts []time.Time
	timeNow  func() time.Time // For testing
}

func NewRateGate(window time.Duration, max int) *RateGate {
	if window <= 0 {
		window = DefaultSwitchWindow
	}
	if max <= 0 {
		max = DefaultMaxSwitches
	}
	return &RateGate{
		window:  window,
		max:     max,
		timeNow: time.Now,
	}
}

// Allow reports whether the action may proceed now. The attempt is
// recorded only when allowed; denied calls leave the window untouched.
func (g *RateGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.timeNow()
	g.prune(now)

	if len(g.attempts) >= g.max {
		return false
	}
	g.attempts = append(g.attempts, now)
	return true
}

// Restricted reports whether the window is saturated without recording
// an attempt. The display layer reads this for its advisory banner.
func (g *RateGate) Restricted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(g.timeNow())
	return len(g.attempts) >= g.max
}

// Remaining returns how many switches the current window still admits.
func (g *RateGate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(g.timeNow())
	return g.max - len(g.attempts)
}

func (g *RateGate) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	valid := g.attempts[:0]
	for _, t := range g.attempts {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	g.attempts = valid
}
