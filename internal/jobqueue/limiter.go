package jobqueue

import (
	"context"
	"time"

	"scheduled-mailer/internal/pkg/clock"

	"golang.org/x/time/rate"
)

// Limiter caps dispatches across the whole queue. TryAcquire never blocks;
// release returns the token when the caller ends up dispatching nothing.
type Limiter interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// LocalLimiter enforces the cap inside one process using the injected clock,
// so tests can drive it with a mock clock.
type LocalLimiter struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

// NewLocalLimiter allows at most max dispatches per interval. max below one
// is treated as one.
func NewLocalLimiter(max int, interval time.Duration, clk clock.Clock) *LocalLimiter {
	if max < 1 {
		max = 1
	}
	return &LocalLimiter{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(max)), max),
		clock:   clk,
	}
}

func (l *LocalLimiter) TryAcquire(_ context.Context) (func(), bool, error) {
	now := l.clock.Now()
	r := l.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil, false, nil
	}
	if r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return nil, false, nil
	}
	// refund at the reservation instant so the token is restored in full
	return func() { r.CancelAt(now) }, true, nil
}

// Unlimited is used when no throughput cap is configured.
type Unlimited struct{}

func (Unlimited) TryAcquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}
