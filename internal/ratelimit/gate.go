// Package ratelimit provides the scheduling primitives for outbound model
// calls: a permit gate enforcing a request ceiling and a bounded retry
// policy. Both take an injected clock so tests can drive time.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// Permit records when a caller was let through
type Permit struct {
	Granted time.Time
	Waited  time.Duration
}

// Gate issues permits at no more than a configured number of requests per
// interval. Callers are served in the order they call Acquire; requests are
// delayed, never dropped.
type Gate struct {
	lim   *rate.Limiter
	clock clock.Clock
	mu    sync.Mutex
}

// NewGate allows requests per interval. A non-positive requests or interval
// disables limiting.
func NewGate(requests int, interval time.Duration, clk clock.Clock) *Gate {
	if clk == nil {
		clk = clock.New()
	}
	g := &Gate{clock: clk}
	if requests > 0 && interval > 0 {
		// burst of one spaces calls evenly, so no window exceeds the ceiling
		g.lim = rate.NewLimiter(rate.Every(interval/time.Duration(requests)), 1)
	}
	return g
}

// Acquire blocks until the caller may send one request or ctx ends. A
// cancelled wait gives its slot back.
func (g *Gate) Acquire(ctx context.Context) (Permit, error) {
	if err := ctx.Err(); err != nil {
		return Permit{}, err
	}

	r, now, delay := g.reserve()
	if r == nil || delay <= 0 {
		return Permit{Granted: now}, nil
	}

	timer := g.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.CancelAt(g.clock.Now())
		return Permit{}, ctx.Err()
	case <-timer.C:
		return Permit{Granted: g.clock.Now(), Waited: delay}, nil
	}
}

func (g *Gate) reserve() (*rate.Reservation, time.Time, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if g.lim == nil {
		return nil, now, 0
	}
	r := g.lim.ReserveN(now, 1)
	return r, now, r.DelayFrom(now)
}
