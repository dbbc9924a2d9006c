// Package retry wraps external OCR/AI calls in a bounded retry policy
// with exponential backoff and a deterministic fallback on exhaustion.
// Callers never see a raw provider error; failure surfaces as a
// fallback outcome they can act on directly.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	retrygo "github.com/avast/retry-go/v4"
)

// Policy describes how an external call is retried.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the first retry
	Multiplier  float64       // backoff multiplier per attempt
	MaxDelay    time.Duration // cap on a single delay (0 = uncapped)

	// JitterPercent spreads each delay by up to the given percentage in
	// either direction, so parallel batches hitting the same rate limit
	// do not retry in lockstep. Zero disables jitter.
	JitterPercent int
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
	}
}

// normalized returns the policy with zero values replaced by defaults.
func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Delay returns the backoff delay after the given zero-based attempt,
// capped at MaxDelay and then jittered.
func (p Policy) Delay(attempt uint) time.Duration {
	p = p.normalized()
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterPercent > 0 {
		span := d * float64(p.JitterPercent) / 100
		d += (rand.Float64()*2 - 1) * span
	}
	return time.Duration(d)
}

// Outcome is the result of a retried external call. Exactly one of the
// two shapes holds: a successful value, or the caller-supplied fallback
// with the reason the call was abandoned.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Reason   string
	Attempts int
}

// Do runs op under the policy. On success the outcome carries op's value.
// On exhaustion or context cancellation the outcome carries fallback and
// the final error text; Do itself never returns an error.
func Do[T any](ctx context.Context, p Policy, fallback T, op func(context.Context) (T, error)) Outcome[T] {
	p = p.normalized()

	attempts := 0
	val, err := retrygo.DoWithData(
		func() (T, error) {
			attempts++
			return op(ctx)
		},
		retrygo.Context(ctx),
		retrygo.Attempts(uint(p.MaxAttempts)),
		retrygo.DelayType(func(n uint, _ error, _ *retrygo.Config) time.Duration {
			return p.Delay(n)
		}),
		retrygo.LastErrorOnly(true),
	)
	if err != nil {
		return Outcome[T]{
			Value:    fallback,
			Fallback: true,
			Reason:   err.Error(),
			Attempts: attempts,
		}
	}

	return Outcome[T]{Value: val, Attempts: attempts}
}
