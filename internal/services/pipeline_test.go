package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sparkload/internal/files/filesystem"
	"github.com/vvka-141/sparkload/internal/files/loader"
	"github.com/vvka-141/sparkload/internal/files/scanner"
	"github.com/vvka-141/sparkload/internal/logging"
	"github.com/vvka-141/sparkload/internal/retry"
	"github.com/vvka-141/sparkload/internal/store/storetest"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

type mockConnector struct {
	err    error
	closed bool
}

func (m *mockConnector) Connect(_ context.Context) (*pgx.Conn, error) {
	return nil, m.err
}

func (m *mockConnector) Close() error {
	m.closed = true
	return nil
}

const songJSON = `{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOUPIRU12A6D4FA1E1", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`

func eventJSON(ts int64, song, artist string, length float64, userID string) string {
	return fmt.Sprintf(`{"artist":%q,"auth":"Logged In","firstName":"Kevin","gender":"M","itemInSession":0,"lastName":"Arellano","length":%v,"level":"free","location":"Harrisburg-Carlisle, PA","method":"PUT","page":"NextSong","registration":1540006905796.0,"sessionId":514,"song":%q,"status":200,"ts":%d,"userAgent":"Mozilla/5.0","userId":%q}`,
		artist, length, song, ts, userID)
}

type pipelineFixture struct {
	fs       *filesystem.MemoryFileSystem
	store    *storetest.MemoryStore
	recorder *logging.Recorder
	pipeline *Pipeline
	opened   int
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		fs:       filesystem.NewMemoryFileSystem("/data"),
		store:    storetest.New(),
		recorder: logging.NewRecorder(),
	}
	executor := retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(1, retry.WithInitialDelay(time.Millisecond)),
	)
	l := loader.New(scanner.New(f.fs), f.fs, executor, f.recorder)

	f.pipeline = NewPipeline(func(*sparkload.ConnectionConfig) (sparkload.Connector, error) {
		return nil, errors.New("not used")
	}, l, f.recorder)
	f.pipeline.openStore = func(context.Context, *sparkload.ConnectionConfig) (runStore, error) {
		f.opened++
		return f.store, nil
	}
	return f
}

func runConfig() sparkload.RunConfig {
	return sparkload.RunConfig{
		Connection:   &sparkload.ConnectionConfig{Host: "localhost", Port: 5432, Database: "sparkifydb"},
		SongDataPath: "/data/song_data",
		LogDataPath:  "/data/log_data",
	}
}

func TestRun_LoadsSongsBeforeLogs(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/A/B/C/TRABCEI128F424C983.json", songJSON)
	f.fs.AddFile("log_data/2018/11/2018-11-12-events.json",
		eventJSON(1542069637796, "Der Kleine Dompfaff", "Line Renaud", 152.92036, "66")+"\n"+
			eventJSON(1542069800000, "Other", "Someone", 10, "66")+"\n")

	report, err := f.pipeline.Run(context.Background(), runConfig())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Songs.FilesProcessed)
	assert.Equal(t, 1, report.Logs.FilesProcessed)
	assert.Equal(t, 2, report.Logs.Rows.Songplays)
	assert.Equal(t, 1, report.Logs.UnresolvedPlays)
	assert.Positive(t, report.Duration)

	plays := f.store.Snapshot().Songplays
	require.Len(t, plays, 2)
	require.True(t, plays[0].Resolved())
	assert.Equal(t, "SOUPIRU12A6D4FA1E1", *plays[0].SongID)
	assert.True(t, f.store.Closed())
	assert.False(t, f.store.SchemaEnsured())

	info := f.recorder.Messages(logging.LevelInfo)
	require.NotEmpty(t, info)
	assert.Equal(t, "1 files found in /data/song_data", info[0])
}

func TestRun_InvalidConfig(t *testing.T) {
	f := newPipelineFixture(t)
	cfg := runConfig()
	cfg.Connection = nil
	cfg.LogDataPath = ""

	_, err := f.pipeline.Run(context.Background(), cfg)
	require.ErrorIs(t, err, sparkload.ErrInvalidConfig)
	assert.Zero(t, f.opened)
}

func TestRun_ConnectionFailureAbortsRun(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/a.json", songJSON)
	f.pipeline.openStore = func(context.Context, *sparkload.ConnectionConfig) (runStore, error) {
		return nil, fmt.Errorf("%w: refused", sparkload.ErrConnectionFailed)
	}

	report, err := f.pipeline.Run(context.Background(), runConfig())
	require.ErrorIs(t, err, sparkload.ErrConnectionFailed)
	assert.Zero(t, report.Songs.FilesFound)
	assert.Zero(t, f.store.Commits)
}

func TestRun_CreateSchema(t *testing.T) {
	f := newPipelineFixture(t)
	cfg := runConfig()
	cfg.CreateSchema = true

	_, err := f.pipeline.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, f.store.SchemaEnsured())
}

func TestRun_SchemaFailureAbortsRun(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/a.json", songJSON)
	f.store.FailNext(storetest.StmtEnsureSchema, errors.New("permission denied for schema public"))
	cfg := runConfig()
	cfg.CreateSchema = true

	_, err := f.pipeline.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, f.store.Snapshot().Songs)
	assert.True(t, f.store.Closed())
}

func TestRun_FileFailuresDoNotAbort(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/bad.json", `{"title": "no ids"}`)
	f.fs.AddFile("log_data/day.json", eventJSON(1542069637796, "X", "Y", 1, "7")+"\n")

	report, err := f.pipeline.Run(context.Background(), runConfig())
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Len(t, report.Songs.Failures, 1)
	assert.Equal(t, 1, report.Logs.FilesProcessed)
}

func TestRun_StrictReportsIncompleteLoad(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/bad.json", `not json`)
	cfg := runConfig()
	cfg.Strict = true

	report, err := f.pipeline.Run(context.Background(), cfg)
	require.ErrorIs(t, err, sparkload.ErrLoadIncomplete)
	assert.Equal(t, sparkload.ExitLoadIncomplete, sparkload.ExitCodeForError(err))
	assert.Len(t, report.Songs.Failures, 1)
}

func TestRun_UnwalkableSongRootStillLoadsLogs(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data", "a file where a directory should be")
	f.fs.AddFile("log_data/day.json", eventJSON(1542069637796, "X", "Y", 1, "7")+"\n")

	report, err := f.pipeline.Run(context.Background(), runConfig())
	require.NoError(t, err)
	require.Len(t, report.Songs.Failures, 1)
	assert.Equal(t, "/data/song_data", report.Songs.Failures[0].Path)
	assert.Equal(t, 1, report.Logs.FilesProcessed)
}

func TestRun_CancelledContext(t *testing.T) {
	f := newPipelineFixture(t)
	f.fs.AddFile("song_data/a.json", songJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, runConfig())
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, f.store.Closed())
	assert.Empty(t, f.store.Snapshot().Songs)
}

func TestDefaultOpenStore_Errors(t *testing.T) {
	rec := logging.NewRecorder()
	fs := filesystem.NewMemoryFileSystem("/data")
	l := loader.New(scanner.New(fs), fs, retry.NewDefaultExecutor(), rec)
	cfg := &sparkload.ConnectionConfig{Host: "localhost", Port: 5432, Database: "sparkifydb"}

	t.Run("factory error keeps its class", func(t *testing.T) {
		p := NewPipeline(func(*sparkload.ConnectionConfig) (sparkload.Connector, error) {
			return nil, fmt.Errorf("instance is required: %w", sparkload.ErrInvalidConfig)
		}, l, rec)

		_, err := p.defaultOpenStore(context.Background(), cfg)
		require.ErrorIs(t, err, sparkload.ErrInvalidConfig)
		assert.NotErrorIs(t, err, sparkload.ErrConnectionFailed)
	})

	t.Run("connect error is a connection failure", func(t *testing.T) {
		connector := &mockConnector{err: errors.New("dial tcp: connection refused")}
		p := NewPipeline(func(*sparkload.ConnectionConfig) (sparkload.Connector, error) {
			return connector, nil
		}, l, rec)

		_, err := p.defaultOpenStore(context.Background(), cfg)
		require.ErrorIs(t, err, sparkload.ErrConnectionFailed)
		assert.Contains(t, err.Error(), "sparkifydb")
		assert.True(t, connector.closed)
	})
}

func TestNewPipeline_PanicsOnNil(t *testing.T) {
	rec := logging.NewRecorder()
	fs := filesystem.NewMemoryFileSystem("/data")
	l := loader.New(scanner.New(fs), fs, retry.NewDefaultExecutor(), rec)
	factory := func(*sparkload.ConnectionConfig) (sparkload.Connector, error) { return nil, nil }

	assert.Panics(t, func() { NewPipeline(nil, l, rec) })
	assert.Panics(t, func() { NewPipeline(factory, nil, rec) })
	assert.Panics(t, func() { NewPipeline(factory, l, nil) })
}
