// Package resilience runs remote calls under a retry, timeout and fallback
// policy.
package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
	"go.uber.org/zap"
)

// Operation is a single remote attempt. It must honour ctx cancellation.
type Operation[T any] func(ctx context.Context) (T, error)

// Result is what ExecuteSafe returns instead of failing.
type Result[T any] struct {
	Value T
	Err   *errors.AppError
}

// OK reports whether Value came from the operation rather than the fallback.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

type Executor struct {
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

type Option func(*Executor)

// WithSleep replaces the backoff sleeper, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) { e.sleep = fn }
}

// WithRandom replaces the jitter source. fn must return values in [0, 1].
func WithRandom(fn func() float64) Option {
	return func(e *Executor) { e.random = fn }
}

func NewExecutor(logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger: logger.Named("resilience"),
		sleep:  sleepContext,
		random: rand.Float64,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs op until it succeeds, fails fatally, or exhausts
// policy.MaxRetries. The returned error is always a classified *errors.AppError.
func Execute[T any](ctx context.Context, e *Executor, name string, policy Policy, op Operation[T]) (T, error) {
	var zero T
	var lastErr *errors.AppError
	attempts := 0
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		attempts++
		value, err := runAttempt(ctx, policy.Timeout, op)
		if err == nil {
			if attempt > 0 {
				e.logger.Info("Provider call recovered after retry",
					zap.String("operation", name),
					zap.Int("attempts", attempts))
			}
			return value, nil
		}

		lastErr = Classify(err)
		if ctx.Err() != nil || !lastErr.Retryable() || attempt == policy.MaxRetries {
			break
		}

		delay := policy.Delay(attempt, e.random)
		e.logger.Warn("Retrying provider call",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", policy.MaxRetries),
			zap.String("error_code", lastErr.Code()),
			zap.Duration("delay", delay),
			zap.Error(err))

		if err := e.sleep(ctx, delay); err != nil {
			break
		}
	}

	return zero, errors.NewAppError(lastErr.Code(),
		fmt.Sprintf("%s failed after %d attempt(s)", name, attempts), lastErr)
}

// ExecuteSafe is Execute that never fails: on error it returns fallback
// together with the classified error.
func ExecuteSafe[T any](ctx context.Context, e *Executor, name string, policy Policy, op Operation[T], fallback T) Result[T] {
	value, err := Execute(ctx, e, name, policy, op)
	if err != nil {
		appErr := Classify(err)
		e.logger.Warn("Provider call failed, serving fallback",
			zap.String("operation", name),
			zap.String("error_code", appErr.Code()),
			zap.Error(err))
		return Result[T]{Value: fallback, Err: appErr}
	}
	return Result[T]{Value: value}
}

// runAttempt races op against timeout. On timeout the attempt context is
// cancelled but the remote side may still complete the call.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op Operation[T]) (T, error) {
	var zero T
	if timeout <= 0 {
		return callGuarded(ctx, op)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := callGuarded(attemptCtx, op)
		done <- outcome{v, err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, errors.NewAppError(errors.ErrTimeout,
			fmt.Sprintf("attempt exceeded %s", timeout), attemptCtx.Err())
	}
}

func callGuarded[T any](ctx context.Context, op Operation[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf(errors.ErrInternal, "operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
