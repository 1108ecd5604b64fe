package loader_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
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

const (
	songRoot = "/data/song_data"
	logRoot  = "/data/log_data"
)

func songDoc(songID, title, artistID, artistName string, duration float64) string {
	return fmt.Sprintf(`{"num_songs": 1, "artist_id": %q, "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": %q, "song_id": %q, "title": %q, "duration": %v, "year": 0}`,
		artistID, artistName, songID, title, duration)
}

func event(page string, ts int64, song, artist string, length float64, userID, level string) string {
	return fmt.Sprintf(`{"artist":%q,"auth":"Logged In","firstName":"Lily","gender":"F","itemInSession":1,"lastName":"Koch","length":%v,"level":%q,"location":"Chicago-Naperville-Elgin, IL-IN-WI","method":"PUT","page":%q,"registration":1541048010796.0,"sessionId":818,"song":%q,"status":200,"ts":%d,"userAgent":"Mozilla/5.0","userId":%q}`,
		artist, length, level, page, song, ts, userID)
}

func logDoc(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

type fixture struct {
	fs       *filesystem.MemoryFileSystem
	store    *storetest.MemoryStore
	recorder *logging.Recorder
	loader   *loader.Loader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := filesystem.NewMemoryFileSystem("/data")
	rec := logging.NewRecorder()
	executor := retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(2, retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0)),
	)
	return &fixture{
		fs:       fs,
		store:    storetest.New(),
		recorder: rec,
		loader:   loader.New(scanner.New(fs), fs, executor, rec),
	}
}

func (f *fixture) loadSongs(t *testing.T) sparkload.LoadReport {
	t.Helper()
	report, err := f.loader.Load(context.Background(), loader.NewSongExtractor(), songRoot, f.store)
	require.NoError(t, err)
	return report
}

func (f *fixture) loadLogs(t *testing.T) sparkload.LoadReport {
	t.Helper()
	report, err := f.loader.Load(context.Background(), loader.NewLogExtractor(), logRoot, f.store)
	require.NoError(t, err)
	return report
}

func TestLoad_SongsThenLogsResolvesPlays(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/A/A/A/TRAAAAW128F429D538.json", songDoc("SOMZWCG12A8C13C480", "I Didn't Mean To", "ARD7TVE1187B99BFB1", "Casual", 218.93179))
	f.fs.AddFile("song_data/A/A/B/TRAABJL12903CDCF1A.json", songDoc("SOUDSGM12AC9618304", "Insatiable", "ARNTLGG11E2835DDB9", "Clp", 266.39628))
	f.fs.AddFile("log_data/2018/11/2018-11-01-events.json", logDoc(
		event("NextSong", 1541105830796, "Insatiable", "Clp", 266.39628, "15", "paid"),
		event("Home", 1541106106796, "", "", 0, "15", "paid"),
		event("NextSong", 1541106352796, "Unknown Song", "Nobody", 100.5, "8", "free"),
	))

	songs := f.loadSongs(t)
	assert.Equal(t, "songs", songs.Dataset)
	assert.Equal(t, 2, songs.FilesFound)
	assert.Equal(t, 2, songs.FilesProcessed)
	assert.Equal(t, sparkload.RowCounts{Songs: 2, Artists: 2}, songs.Rows)
	assert.True(t, songs.OK())

	logs := f.loadLogs(t)
	assert.Equal(t, "logs", logs.Dataset)
	assert.Equal(t, 1, logs.FilesProcessed)
	assert.Equal(t, sparkload.RowCounts{Times: 2, Users: 2, Songplays: 2}, logs.Rows)
	assert.Equal(t, 1, logs.UnresolvedPlays)
	assert.Empty(t, logs.RecordErrors)

	tables := f.store.Snapshot()
	require.Len(t, tables.Songplays, 2)

	resolved := tables.Songplays[0]
	require.True(t, resolved.Resolved())
	assert.Equal(t, "SOUDSGM12AC9618304", *resolved.SongID)
	assert.Equal(t, "ARNTLGG11E2835DDB9", *resolved.ArtistID)
	assert.Equal(t, 0, resolved.PlayID)

	unresolved := tables.Songplays[1]
	assert.False(t, unresolved.Resolved())
	assert.Nil(t, unresolved.SongID)
	assert.Nil(t, unresolved.ArtistID)
	assert.Equal(t, 1, unresolved.PlayID)
}

func TestLoad_ProgressMessages(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.fs.AddFile("song_data/b.json", songDoc("S2", "Two", "A1", "Artist", 2))

	f.loadSongs(t)

	assert.Equal(t, []string{
		"2 files found in /data/song_data",
		"1/2 files processed.",
		"2/2 files processed.",
	}, f.recorder.Messages(logging.LevelInfo))
}

func TestLoad_MalformedSongFileIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.fs.AddFile("song_data/b.json", `{"song_id": "S2", "title": "Two"}`)
	f.fs.AddFile("song_data/c.json", songDoc("S3", "Three", "A2", "Other", 3))

	report := f.loadSongs(t)

	assert.Equal(t, 3, report.FilesFound)
	assert.Equal(t, 2, report.FilesProcessed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/data/song_data/b.json", report.Failures[0].Path)
	assert.ErrorIs(t, report.Failures[0].Err, sparkload.ErrMalformedRecord)
	assert.False(t, report.OK())

	tables := f.store.Snapshot()
	assert.Len(t, tables.Songs, 2)
	assert.Contains(t, tables.Songs, "S1")
	assert.Contains(t, tables.Songs, "S3")
	assert.True(t, f.recorder.Contains(logging.LevelError, "/data/song_data/b.json"))
}

func TestLoad_FailedInsertRollsBackWholeFile(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("log_data/day1.json", logDoc(
		event("NextSong", 1541105830796, "A", "B", 1, "15", "free"),
		event("NextSong", 1541106352796, "C", "D", 2, "16", "free"),
	))
	f.fs.AddFile("log_data/day2.json", logDoc(
		event("NextSong", 1541200000000, "E", "F", 3, "17", "free"),
	))
	f.store.FailNext(sparkload.StmtInsertSongplay, &pgconn.PgError{Code: "23502", Message: "null value in column"})

	report := f.loadLogs(t)

	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/data/log_data/day1.json", report.Failures[0].Path)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, sparkload.RowCounts{Times: 1, Users: 1, Songplays: 1}, report.Rows)

	tables := f.store.Snapshot()
	assert.Len(t, tables.Times, 1)
	assert.Len(t, tables.Songplays, 1)
	assert.Contains(t, tables.Users, "17")
	assert.NotContains(t, tables.Users, "15")
	assert.Equal(t, 1, f.store.Rollbacks)
	assert.Equal(t, 1, f.store.Commits)
}

func TestLoad_TransientErrorRetriesFile(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.store.FailNext(sparkload.StmtInsertArtist, &pgconn.PgError{Code: "40P01", Message: "deadlock detected"})

	report := f.loadSongs(t)

	assert.True(t, report.OK())
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 1, f.store.Rollbacks)
	assert.Equal(t, 1, f.store.Commits)
	assert.Len(t, f.store.Snapshot().Songs, 1)
	assert.True(t, f.recorder.Contains(logging.LevelVerbose, "Retrying /data/song_data/a.json"))
}

func TestLoad_TransientErrorGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	serialization := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	f.store.FailNext(sparkload.StmtInsertSong, serialization, serialization, serialization)

	report := f.loadSongs(t)

	require.Len(t, report.Failures, 1)
	var pgErr *pgconn.PgError
	require.ErrorAs(t, report.Failures[0].Err, &pgErr)
	assert.Equal(t, "40001", pgErr.Code)
	assert.Equal(t, 3, f.store.Rollbacks)
	assert.Empty(t, f.store.Snapshot().Songs)
}

func TestLoad_LookupFailureLeavesPlayUnresolved(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.fs.AddFile("log_data/day.json", logDoc(
		event("NextSong", 1541105830796, "One", "Artist", 1, "15", "free"),
		event("NextSong", 1541106352796, "One", "Artist", 1, "15", "free"),
	))
	f.store.FailNext(sparkload.StmtSelectSong, errors.New("canceling statement due to statement timeout"))

	f.loadSongs(t)
	report := f.loadLogs(t)

	assert.True(t, report.OK())
	assert.Equal(t, 1, report.UnresolvedPlays)

	tables := f.store.Snapshot()
	require.Len(t, tables.Songplays, 2)
	assert.False(t, tables.Songplays[0].Resolved())
	assert.True(t, tables.Songplays[1].Resolved())
	assert.True(t, f.recorder.Contains(logging.LevelError, "Song lookup failed"))
}

func TestLoad_MalformedEventsAreSkipped(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("log_data/day.json", logDoc(
		event("NextSong", 1541105830796, "A", "B", 1, "15", "free"),
		`{"page":"NextSong","song":"broken"`,
		`{"page":"NextSong","ts":1541106352796,"song":"C","artist":"D","length":2}`,
		`{"page":"NextSong","ts":"not-a-number","song":"G","artist":"H","length":4,"userId":"17"}`,
		event("NextSong", 1541106400000, "E", "F", 3, "16", "paid"),
	))

	report := f.loadLogs(t)

	assert.True(t, report.OK())
	assert.Equal(t, 2, report.Rows.Songplays)
	require.Len(t, report.RecordErrors, 3)
	for _, recErr := range report.RecordErrors {
		assert.Equal(t, "/data/log_data/day.json", recErr.Path)
		assert.ErrorIs(t, recErr, sparkload.ErrMalformedRecord)
	}

	// Only the line that is not JSON at all gives up its play_id position.
	plays := f.store.Snapshot().Songplays
	require.Len(t, plays, 2)
	assert.Equal(t, 0, plays[0].PlayID)
	assert.Equal(t, 3, plays[1].PlayID)
	assert.Equal(t, "16", plays[1].UserID)
}

func TestLoad_UserLevelLastWriteWins(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("log_data/day1.json", logDoc(event("NextSong", 1541105830796, "A", "B", 1, "15", "free")))
	f.fs.AddFile("log_data/day2.json", logDoc(event("NextSong", 1541200000000, "A", "B", 1, "15", "paid")))

	f.loadLogs(t)

	assert.Equal(t, "paid", f.store.Snapshot().Users["15"].Level)
}

func TestLoad_EmptyAndMissingRoots(t *testing.T) {
	f := newFixture(t)
	f.fs.AddDir("song_data")

	songs := f.loadSongs(t)
	assert.Equal(t, 0, songs.FilesFound)
	assert.True(t, songs.OK())

	logs := f.loadLogs(t)
	assert.Equal(t, 0, logs.FilesFound)
	assert.True(t, f.recorder.Contains(logging.LevelInfo, "0 files found in /data/log_data"))
}

func TestLoad_ReadFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.fs.FailRead("song_data/a.json", errors.New("input/output error"))

	report := f.loadSongs(t)

	require.Len(t, report.Failures, 1)
	assert.Contains(t, report.Failures[0].Error(), "input/output error")
	assert.Zero(t, f.store.Commits)
}

func TestLoad_UnreadableDirectoryIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/A/A/a.json", songDoc("S1", "One", "A1", "Artist", 1))
	f.fs.AddFile("song_data/A/B/b.json", songDoc("S2", "Two", "A2", "Other", 2))
	f.fs.AddFile("song_data/B/c.json", songDoc("S3", "Three", "A3", "Third", 3))
	f.fs.FailWalk("song_data/A/B", errors.New("permission denied"))

	report := f.loadSongs(t)

	assert.Equal(t, 2, report.FilesFound)
	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, sparkload.RowCounts{Songs: 2, Artists: 2}, report.Rows)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/data/song_data/A/B", report.Failures[0].Path)
	assert.False(t, report.OK())
	assert.True(t, f.recorder.Contains(logging.LevelError, "Failed to walk /data/song_data/A/B"))
}

func TestLoad_DiscoveryErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data", "not a directory")

	_, err := f.loader.Load(context.Background(), loader.NewSongExtractor(), songRoot, f.store)
	assert.Error(t, err)
}

func TestLoad_CancelledContextStopsBetweenFiles(t *testing.T) {
	f := newFixture(t)
	f.fs.AddFile("song_data/a.json", songDoc("S1", "One", "A1", "Artist", 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.loader.Load(ctx, loader.NewSongExtractor(), songRoot, f.store)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.FilesFound)
	assert.Zero(t, report.FilesProcessed)
	assert.Zero(t, f.store.Commits)
}

func TestNew_PanicsOnNilDependencies(t *testing.T) {
	fs := filesystem.NewMemoryFileSystem("/data")
	s := scanner.New(fs)
	executor := retry.NewDefaultExecutor()
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { loader.New(nil, fs, executor, logger) })
	assert.Panics(t, func() { loader.New(s, nil, executor, logger) })
	assert.Panics(t, func() { loader.New(s, fs, nil, logger) })
	assert.Panics(t, func() { loader.New(s, fs, executor, nil) })
	assert.NotPanics(t, func() { loader.New(s, fs, executor, logger) })
}
