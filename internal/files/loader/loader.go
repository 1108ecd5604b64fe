package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/vvka-141/sparkload/internal/files/filesystem"
	"github.com/vvka-141/sparkload/internal/files/scanner"
	"github.com/vvka-141/sparkload/internal/retry"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// Loader applies every document under a dataset root to the store.
// It is sequential; one Loader may be reused for several datasets.
type Loader struct {
	scanner    *scanner.Scanner
	fsProvider filesystem.FileSystemProvider
	executor   *retry.Executor
	logger     sparkload.Logger
}

// New creates a Loader. Panics if any dependency is nil.
func New(s *scanner.Scanner, fsProvider filesystem.FileSystemProvider, executor *retry.Executor, logger sparkload.Logger) *Loader {
	if s == nil {
		panic("scanner cannot be nil")
	}
	if fsProvider == nil {
		panic("fsProvider cannot be nil")
	}
	if executor == nil {
		panic("executor cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Loader{
		scanner:    s,
		fsProvider: fsProvider,
		executor:   executor,
		logger:     logger,
	}
}

// Load discovers the documents under root and applies each one in its own
// transaction. A failing file is rolled back, recorded in the report and
// skipped; so is a directory that cannot be read. The returned error is
// non-nil only when the root cannot be walked or ctx is cancelled; the
// report then covers the files handled so far.
func (l *Loader) Load(ctx context.Context, extractor Extractor, root string, store sparkload.Store) (sparkload.LoadReport, error) {
	start := time.Now()
	report := sparkload.LoadReport{
		Dataset: extractor.Name(),
		Root:    root,
	}

	found, err := l.scanner.Discover(root)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("failed to discover %s documents: %w", extractor.Name(), err)
	}
	for _, skipped := range found.Skipped {
		l.logger.Error("Failed to walk %s: %v", skipped.Path, skipped.Err)
		report.Failures = append(report.Failures, skipped)
	}

	paths := found.Paths
	report.FilesFound = len(paths)
	l.logger.Info("%d files found in %s", len(paths), root)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("%s load interrupted after %d/%d files: %w", extractor.Name(), i, len(paths), err)
		}

		stats, err := l.loadFile(ctx, extractor, path, store)
		if err != nil {
			l.logger.Error("Failed to load %s: %v", path, err)
			report.Failures = append(report.Failures, sparkload.FileFailure{Path: path, Err: err})
		} else {
			l.record(&report, path, stats)
		}

		l.logger.Info("%d/%d files processed.", i+1, len(paths))
	}

	report.Duration = time.Since(start)
	return report, nil
}

func (l *Loader) record(report *sparkload.LoadReport, path string, stats FileStats) {
	report.FilesProcessed++
	report.Rows.Add(stats.Rows)
	report.UnresolvedPlays += stats.UnresolvedPlays

	for _, err := range stats.RecordErrors {
		l.logger.Verbose("Skipped record in %s: %v", path, err)
		report.RecordErrors = append(report.RecordErrors, sparkload.RecordFailure{Path: path, Err: err})
	}
	for _, err := range stats.LookupErrors {
		l.logger.Error("Song lookup failed in %s: %v", path, err)
	}
	if stats.Filtered > 0 {
		l.logger.Verbose("%s: %d events ignored", path, stats.Filtered)
	}
}

// loadFile reads one document and applies it, retrying the whole
// transaction while the store reports transient errors.
func (l *Loader) loadFile(ctx context.Context, extractor Extractor, path string, store sparkload.Store) (FileStats, error) {
	content, err := l.fsProvider.ReadFile(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("failed to read file: %w", err)
	}

	executor := l.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		l.logger.Verbose("Retrying %s in %v (attempt %d): %v", path, delay, attempt+1, err)
	})

	var stats FileStats
	err = executor.Execute(ctx, func(ctx context.Context) error {
		var applyErr error
		stats, applyErr = applyInTx(ctx, extractor, content, store)
		return applyErr
	})
	if err != nil {
		return FileStats{}, err
	}
	return stats, nil
}

func applyInTx(ctx context.Context, extractor Extractor, content []byte, store sparkload.Store) (FileStats, error) {
	tx, err := store.Begin(ctx)
	if err != nil {
		return FileStats{}, err
	}
	// No-op once committed. Uses a detached context so a cancelled run
	// still releases the transaction.
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	stats, err := extractor.Apply(ctx, content, tx)
	if err != nil {
		return FileStats{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return FileStats{}, err
	}
	return stats, nil
}
