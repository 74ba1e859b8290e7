package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request
	Wait()
	// Mark records that a request attempt finished, success or failure
	Mark()
}

// Interval enforces a minimum delay between requests. Wait blocks until
// the interval has elapsed since the last Mark; callers Mark after every
// attempt returns, success or failure, so a failing request does not
// turn into a tight retry loop.
type Interval struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewInterval creates an interval limiter. The first Wait does not block.
func NewInterval(interval time.Duration) *Interval {
	return &Interval{
		interval: interval,
		// Zero time: the first request is immediately eligible.
	}
}

// Allow reports whether the interval has elapsed since the last Mark.
func (i *Interval) Allow() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return time.Since(i.last) >= i.interval
}

// Wait blocks until the interval has elapsed. The wait is uninterruptible;
// early termination is the operator killing the process.
func (i *Interval) Wait() {
	for {
		i.mu.Lock()
		remaining := i.interval - time.Since(i.last)
		i.mu.Unlock()

		if remaining <= 0 {
			return
		}
		time.Sleep(remaining)
	}
}

// Mark restarts the clock. Call it after every request attempt returns.
func (i *Interval) Mark() {
	i.mu.Lock()
	i.last = time.Now()
	i.mu.Unlock()
}

// TokenBucket implements a token bucket rate limiter. Waiting consumes a
// token, so Mark is a no-op here; the bucket refills on its own period.
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time     // Last time the bucket was refilled
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed, consuming a token if so
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill > 0 {
			time.Sleep(timeUntilRefill)
		} else {
			// Small sleep to prevent busy waiting
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Mark is a no-op; tokens are consumed by Wait.
func (tb *TokenBucket) Mark() {}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
