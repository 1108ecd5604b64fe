package store

import "github.com/vvka-141/sparkload/pkg/sparkload"

// SQL statements keyed by the identifiers the pipeline uses.
// Songs and artists keep their first version, users keep their latest level,
// time and songplay rows are appended.
const (
	sqlInsertSong = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (song_id) DO NOTHING
	`

	sqlInsertArtist = `
		INSERT INTO artists (artist_id, name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (artist_id) DO NOTHING
	`

	sqlInsertTime = `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	sqlInsertUser = `
		INSERT INTO users (user_id, first_name, last_name, gender, level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET level = EXCLUDED.level
	`

	sqlInsertSongplay = `
		INSERT INTO songplays (play_id, start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	// Parameters: $1 title, $2 artist name, $3 duration. Exact match only.
	sqlSelectSong = `
		SELECT s.song_id, a.artist_id
		FROM songs s
		JOIN artists a ON a.artist_id = s.artist_id
		WHERE s.title = $1 AND a.name = $2 AND s.duration = $3
		LIMIT 1
	`
)

var statements = map[sparkload.StatementID]string{
	sparkload.StmtInsertSong:     sqlInsertSong,
	sparkload.StmtInsertArtist:   sqlInsertArtist,
	sparkload.StmtInsertTime:     sqlInsertTime,
	sparkload.StmtInsertUser:     sqlInsertUser,
	sparkload.StmtInsertSongplay: sqlInsertSongplay,
	sparkload.StmtSelectSong:     sqlSelectSong,
}

// SQL returns the statement text for id.
func SQL(id sparkload.StatementID) (string, bool) {
	s, ok := statements[id]
	return s, ok
}
