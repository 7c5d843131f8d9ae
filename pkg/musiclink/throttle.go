package musiclink

import (
	"context"
	"time"
)

const (
	// DefaultThrottleInterval keeps lookups within one request per second.
	DefaultThrottleInterval = time.Second
)

// Throttle suspends the caller before an outbound lookup call.
type Throttle interface {
	Wait(ctx context.Context) error
}

// IntervalThrottle waits a fixed interval on every call. The wait ends early
// with the context's error if the context is cancelled.
type IntervalThrottle struct {
	interval time.Duration
}

func NewIntervalThrottle(interval time.Duration) *IntervalThrottle {
	return &IntervalThrottle{interval: interval}
}

func (t *IntervalThrottle) Wait(ctx context.Context) error {
	if t.interval <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(t.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ThrottleFunc adapts a function to the Throttle interface.
type ThrottleFunc func(ctx context.Context) error

func (f ThrottleFunc) Wait(ctx context.Context) error {
	return f(ctx)
}
