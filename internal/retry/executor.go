package retry

import (
	"context"
	"time"

	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// RetryFunc observes a retry before its backoff sleep. attempt is zero-indexed.
type RetryFunc func(attempt int, err error, delay time.Duration)

// Executor runs an operation until it succeeds, fails fatally, or the
// strategy runs out of attempts.
type Executor struct {
	classifier sparkload.ErrorClassifier
	strategy   sparkload.BackoffStrategy
	onRetry    RetryFunc
}

// NewExecutor creates a new retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier sparkload.ErrorClassifier, strategy sparkload.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{
		classifier: classifier,
		strategy:   strategy,
	}
}

// NewDefaultExecutor uses the PostgreSQL classifier and the default backoff.
func NewDefaultExecutor() *Executor {
	return NewExecutor(
		NewPostgreSQLErrorClassifier(),
		NewExponentialBackoff(sparkload.DefaultRetryMaxAttempts,
			WithInitialDelay(sparkload.DefaultRetryInitialDelay),
			WithMaxDelay(sparkload.DefaultRetryMaxDelay),
		),
	)
}

// WithOnRetry returns a copy of the executor that reports each retry to fn.
// The receiver is not modified.
func (e *Executor) WithOnRetry(fn RetryFunc) *Executor {
	clone := *e
	clone.onRetry = fn
	return &clone
}

// Execute runs operation once, then retries while the error is transient.
// It returns nil on success, otherwise the last error seen or the context error.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxRetries := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxRetries >= 0 && attempt >= maxRetries {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}

		err = operation(ctx)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
