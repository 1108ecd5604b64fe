// Package retry re-runs operations that failed for transient reasons.
//
// Two call sites use it: connectors retry the initial dial, and the loader
// retries a whole file transaction when the server reports a deadlock or a
// serialization failure.
//
//	executor := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	)
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return loadFile(ctx, path)
//	})
//
// Executor values are immutable after construction and safe for concurrent use.
package retry
