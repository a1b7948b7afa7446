package fetch

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"net"
	"time"
)

// RetryPolicy decides retry eligibility and jittered backoff delays.
type RetryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewRetryPolicy builds a policy. Zero values fall back to defaults.
func NewRetryPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// ShouldRetry decides whether the error is retryable.
func (p *RetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *RetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	jitter := p.randomJitter(time.Duration(delay) / 2)
	return time.Duration(delay/2) + jitter
}

func (p *RetryPolicy) randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
