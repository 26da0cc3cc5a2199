package mcpws

import (
	"math"
	"math/rand/v2"
	"time"
)

const backoffGrowth = 1.5

// reconnectPolicy computes retry delays with bounded exponential backoff
// and ±20% jitter, and gates scheduling on a maximum attempt count.
type reconnectPolicy struct {
	base        time.Duration
	max         time.Duration
	maxAttempts int
	rand        func() float64 // nil means math/rand
}

// exhausted reports whether no further attempt may be scheduled.
func (p reconnectPolicy) exhausted(attempt int) bool {
	return p.maxAttempts > 0 && attempt >= p.maxAttempts
}

// delayFor returns the backoff delay for the given zero-based attempt:
// min(base * 1.5^attempt, max), scaled by a jitter factor in [0.8, 1.2).
func (p reconnectPolicy) delayFor(attempt int) time.Duration {
	d := float64(p.base) * math.Pow(backoffGrowth, float64(attempt))
	if m := float64(p.max); p.max > 0 && d > m {
		d = m
	}
	rnd := p.rand
	if rnd == nil {
		rnd = rand.Float64
	}
	jitter := 0.8 + 0.4*rnd()
	return time.Duration(d * jitter)
}
