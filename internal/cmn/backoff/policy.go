package backoff

import (
	"errors"
	"math"
	"time"
)

// ErrRetriesExhausted is returned by a policy once no further attempt is allowed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy decides how long to wait before the next attempt.
type RetryPolicy interface {
	// ComputeNextInterval returns the wait before retry number retryCount
	// (0 for the first retry) or ErrRetriesExhausted.
	ComputeNextInterval(retryCount int) (time.Duration, error)
}

const defaultBackoffFactor = 2.0

// ExponentialBackoffPolicy doubles (by BackoffFactor) the wait after every
// failed attempt, capped at MaxInterval.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	BackoffFactor   float64
	MaxInterval     time.Duration
	// MaxRetries is the number of retries after the first attempt. 0 means unlimited.
	MaxRetries int
}

// ForAttempts returns an exponential policy that allows at most attempts
// tries in total. attempts <= 1 disables retrying.
func ForAttempts(attempts int, initial, maxInterval time.Duration) RetryPolicy {
	if attempts <= 1 {
		return NoRetry{}
	}
	return &ExponentialBackoffPolicy{
		InitialInterval: initial,
		BackoffFactor:   defaultBackoffFactor,
		MaxInterval:     maxInterval,
		MaxRetries:      attempts - 1,
	}
}

func (p *ExponentialBackoffPolicy) ComputeNextInterval(retryCount int) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = defaultBackoffFactor
	}
	interval := float64(p.InitialInterval) * math.Pow(factor, float64(retryCount))
	if p.MaxInterval > 0 && interval > float64(p.MaxInterval) {
		interval = float64(p.MaxInterval)
	}
	return time.Duration(interval), nil
}

// ConstantBackoffPolicy waits the same interval between attempts.
type ConstantBackoffPolicy struct {
	Interval   time.Duration
	MaxRetries int
}

func (p *ConstantBackoffPolicy) ComputeNextInterval(retryCount int) (time.Duration, error) {
	if p.MaxRetries > 0 && retryCount >= p.MaxRetries {
		return 0, ErrRetriesExhausted
	}
	return p.Interval, nil
}

// NoRetry allows exactly one attempt.
type NoRetry struct{}

func (NoRetry) ComputeNextInterval(int) (time.Duration, error) {
	return 0, ErrRetriesExhausted
}
