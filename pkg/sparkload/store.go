package sparkload

import "context"

// StatementID names a store operation. The SQL behind each identifier
// belongs to the store implementation; the pipeline only relies on the
// semantic contract documented on each constant.
type StatementID string

const (
	// StmtInsertSong inserts (song_id, title, artist_id, year, duration).
	// Existing song_ids are left untouched.
	StmtInsertSong StatementID = "insert-song"

	// StmtInsertArtist inserts (artist_id, name, location, latitude, longitude).
	// Existing artist_ids are left untouched.
	StmtInsertArtist StatementID = "insert-artist"

	// StmtInsertTime inserts (start_time, hour, day, week, month, year, weekday).
	// Duplicates are permitted.
	StmtInsertTime StatementID = "insert-time"

	// StmtInsertUser upserts (user_id, first_name, last_name, gender, level).
	// The last write for a user_id wins for level.
	StmtInsertUser StatementID = "insert-user"

	// StmtInsertSongplay inserts (play_id, start_time, user_id, level,
	// song_id, artist_id, session_id, location, user_agent).
	StmtInsertSongplay StatementID = "insert-songplay"

	// StmtSelectSong takes (title, artist name, duration) and returns at most
	// one (song_id, artist_id) pair.
	StmtSelectSong StatementID = "select-song-by-title-artist-duration"
)

// Statements lists every statement the pipeline depends on.
func Statements() []StatementID {
	return []StatementID{
		StmtInsertSong,
		StmtInsertArtist,
		StmtInsertTime,
		StmtInsertUser,
		StmtInsertSongplay,
		StmtSelectSong,
	}
}

// Store is the destination relational store, owned by the pipeline driver
// for the duration of a run. Implementations are not required to be safe
// for concurrent use: a run is strictly sequential.
type Store interface {
	// Begin opens the transaction that scopes one file's writes.
	Begin(ctx context.Context) (Tx, error)

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// Tx is a unit of work covering exactly one source file.
type Tx interface {
	// Exec runs a write statement.
	Exec(ctx context.Context, stmt StatementID, args ...any) error

	// QueryOne runs a select statement and scans the first row into dest.
	// found is false when the statement returned no rows. A failing query
	// must leave the transaction usable for subsequent statements.
	QueryOne(ctx context.Context, stmt StatementID, args []any, dest ...any) (found bool, err error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
