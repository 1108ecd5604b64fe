package records

import "time"

// SongRow is one row of the songs dimension.
type SongRow struct {
	SongID   string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Args returns the row in insert-song parameter order.
func (r SongRow) Args() []any {
	return []any{r.SongID, r.Title, r.ArtistID, r.Year, r.Duration}
}

// ArtistRow is one row of the artists dimension.
type ArtistRow struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  *float64
	Longitude *float64
}

// Args returns the row in insert-artist parameter order.
func (r ArtistRow) Args() []any {
	return []any{r.ArtistID, r.Name, r.Location, r.Latitude, r.Longitude}
}

// TimeRow is one row of the time dimension.
type TimeRow struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int
	Month     int
	Year      int
	Weekday   int
}

// Args returns the row in insert-time parameter order.
func (r TimeRow) Args() []any {
	return []any{r.StartTime, r.Hour, r.Day, r.Week, r.Month, r.Year, r.Weekday}
}

// UserRow is one row of the users dimension.
type UserRow struct {
	UserID    string
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Args returns the row in insert-user parameter order.
func (r UserRow) Args() []any {
	return []any{r.UserID, r.FirstName, r.LastName, r.Gender, r.Level}
}

// SongKey is the exact-match key used to resolve a play to a song and artist.
type SongKey struct {
	Title    string
	Artist   string
	Duration float64
}

// Args returns the key in select-song parameter order.
func (k SongKey) Args() []any {
	return []any{k.Title, k.Artist, k.Duration}
}

// SongplayRow is one row of the songplays fact table.
type SongplayRow struct {
	// PlayID is the zero-based position of the record among the file's
	// NextSong events. It is unique only within one file.
	PlayID    int
	StartTime time.Time
	UserID    string
	Level     string
	SongID    *string
	ArtistID  *string
	SessionID int64
	Location  string
	UserAgent string

	// Lookup is nil when the event carries no length to match on.
	Lookup *SongKey
}

// Resolve attaches the song and artist identifiers found by the lookup.
func (r *SongplayRow) Resolve(songID, artistID string) {
	r.SongID = &songID
	r.ArtistID = &artistID
}

// Resolved reports whether the play references a known song.
func (r SongplayRow) Resolved() bool {
	return r.SongID != nil && r.ArtistID != nil
}

// Args returns the row in insert-songplay parameter order.
func (r SongplayRow) Args() []any {
	return []any{
		r.PlayID,
		r.StartTime,
		r.UserID,
		r.Level,
		r.SongID,
		r.ArtistID,
		r.SessionID,
		r.Location,
		r.UserAgent,
	}
}
