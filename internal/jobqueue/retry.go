package jobqueue

import "time"

const (
	DefaultRetryBase   = time.Second
	DefaultMaxAttempts = 3
)

// RetryPolicy is pure: exponential backoff of Base * 2^(attempt-1).
type RetryPolicy struct {
	Base        time.Duration
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: DefaultRetryBase, MaxAttempts: DefaultMaxAttempts}
}

func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// cap the shift so huge attempt counts cannot overflow
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	return p.Base * time.Duration(1<<shift)
}

func (p RetryPolicy) ShouldRetry(attempt, maxAttempts int) bool {
	return attempt < maxAttempts
}
