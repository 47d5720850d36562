package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retries with exponential backoff and jitter.
type Policy struct {
	// Attempts counts the first try. 1 disables retries.
	Attempts int
	Base     time.Duration
	Max      time.Duration
	// Jitter is the +/- fraction applied to each delay.
	Jitter float64
	// Retryable decides whether an error is worth another attempt.
	// Defaults to Transient.
	Retryable func(error) bool
}

// DefaultPolicy returns three attempts starting at one second.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, Base: time.Second, Max: 20 * time.Second, Jitter: 0.2}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.Attempts <= 0 {
		p.Attempts = d.Attempts
	}
	if p.Base <= 0 {
		p.Base = d.Base
	}
	if p.Max <= 0 {
		p.Max = d.Max
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = Transient
	}
	return p
}

// Retry calls fn until it succeeds, returns a non-retryable error, runs out
// of attempts, or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var (
		v   T
		err error
	)
	for attempt := 1; ; attempt++ {
		v, err = fn(ctx)
		if err == nil || ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Attempts {
			return v, err
		}

		delay := p.delay(attempt)
		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, err
		case <-t.C:
		}
	}
}

// delay is the wait after the given 1-based attempt.
func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Base) * math.Pow(2, float64(attempt-1))
	d = math.Min(d, float64(p.Max))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}
