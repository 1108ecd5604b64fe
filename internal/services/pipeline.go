// Package services drives a complete load run.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vvka-141/sparkload/internal/files/loader"
	"github.com/vvka-141/sparkload/internal/store"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// runStore is the store a run writes to. EnsureSchema is only called when
// the run asks for the bootstrap DDL.
type runStore interface {
	sparkload.Store
	EnsureSchema(ctx context.Context) error
}

type openStoreFunc func(ctx context.Context, connConfig *sparkload.ConnectionConfig) (runStore, error)

// Pipeline loads the song dataset, then the log dataset, over one store
// connection.
// Thread-Safety: NOT safe for concurrent Run() calls on the same instance.
type Pipeline struct {
	connectorFactory sparkload.ConnectorFactory
	loader           *loader.Loader
	logger           sparkload.Logger
	openStore        openStoreFunc
}

// NewPipeline creates a Pipeline with all dependencies injected.
// Panics on nil dependencies; runtime conditions are returned as errors.
func NewPipeline(connectorFactory sparkload.ConnectorFactory, l *loader.Loader, logger sparkload.Logger) *Pipeline {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if l == nil {
		panic("loader cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	p := &Pipeline{
		connectorFactory: connectorFactory,
		loader:           l,
		logger:           logger,
	}
	p.openStore = p.defaultOpenStore
	return p
}

// connectedStore closes the connector's own resources together with the
// connection, for connectors such as Cloud SQL that hold a dialer.
type connectedStore struct {
	*store.PgStore
	connector io.Closer
}

func (s *connectedStore) Close(ctx context.Context) error {
	return errors.Join(s.PgStore.Close(ctx), s.connector.Close())
}

func (p *Pipeline) defaultOpenStore(ctx context.Context, connConfig *sparkload.ConnectionConfig) (runStore, error) {
	connector, err := p.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	conn, err := connector.Connect(ctx)
	if err != nil {
		if closer, ok := connector.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("%w: database %q: %w", sparkload.ErrConnectionFailed, connConfig.Database, err)
	}

	pg := store.New(conn)
	if closer, ok := connector.(io.Closer); ok {
		return &connectedStore{PgStore: pg, connector: closer}, nil
	}
	return pg, nil
}

// Run executes one load: connect, optionally bootstrap the schema, load
// songs, load logs, close. Only configuration, connection, schema and
// cancellation errors abort the run. Files that fail are reported in the
// RunReport; with cfg.Strict they also produce ErrLoadIncomplete.
func (p *Pipeline) Run(ctx context.Context, cfg sparkload.RunConfig) (report sparkload.RunReport, err error) {
	start := time.Now()
	report.RunID = uuid.New()
	defer func() { report.Duration = time.Since(start) }()

	if err := cfg.Validate(); err != nil {
		return report, fmt.Errorf("invalid configuration: %w", err)
	}

	p.logger.Verbose("Run %s: connecting to %s:%d/%s", report.RunID, cfg.Connection.Host, cfg.Connection.Port, cfg.Connection.Database)
	st, err := p.openStore(ctx, cfg.Connection)
	if err != nil {
		return report, err
	}
	defer func() {
		if closeErr := st.Close(context.WithoutCancel(ctx)); closeErr != nil {
			p.logger.Error("Failed to close store: %v", closeErr)
		}
	}()

	if cfg.CreateSchema {
		p.logger.Verbose("Applying schema...")
		if err := st.EnsureSchema(ctx); err != nil {
			return report, err
		}
		p.logger.Info("✓ Schema ready")
	}

	report.Songs, err = p.loadDataset(ctx, loader.NewSongExtractor(), cfg.SongDataPath, st)
	if err != nil {
		return report, err
	}

	report.Logs, err = p.loadDataset(ctx, loader.NewLogExtractor(), cfg.LogDataPath, st)
	if err != nil {
		return report, err
	}

	p.logger.Verbose("Run %s finished in %v", report.RunID, time.Since(start).Round(time.Millisecond))

	if cfg.Strict && !report.OK() {
		failed := len(report.Songs.Failures) + len(report.Logs.Failures)
		return report, fmt.Errorf("%w: %d files failed", sparkload.ErrLoadIncomplete, failed)
	}
	return report, nil
}

// loadDataset runs the loader over one root. A root that cannot be walked
// is recorded as a failure of the dataset so the other dataset still loads;
// cancellation aborts the run.
func (p *Pipeline) loadDataset(ctx context.Context, extractor loader.Extractor, root string, st sparkload.Store) (sparkload.LoadReport, error) {
	report, err := p.loader.Load(ctx, extractor, root, st)
	if err == nil {
		return report, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, err
	}

	p.logger.Error("%v", err)
	report.Failures = append(report.Failures, sparkload.FileFailure{Path: root, Err: err})
	return report, nil
}
