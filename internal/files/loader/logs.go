package loader

import (
	"context"
	"fmt"

	"github.com/vvka-141/sparkload/internal/records"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// LogExtractor loads event log documents. Only NextSong events produce rows.
type LogExtractor struct{}

func NewLogExtractor() *LogExtractor {
	return &LogExtractor{}
}

func (e *LogExtractor) Name() string { return "logs" }

// Apply writes all time rows, then all user rows, then one songplay per
// play. Songs must already be loaded for plays to resolve.
//
// Malformed events are skipped and reported. A failed song lookup leaves
// the play unresolved; only a failed insert fails the file.
func (e *LogExtractor) Apply(ctx context.Context, content []byte, tx sparkload.Tx) (FileStats, error) {
	events, parseErrs := records.ParseEvents(content)
	rows := records.ExtractLog(events)

	stats := FileStats{
		RecordErrors: append(parseErrs, rows.Errors...),
		Filtered:     rows.Filtered,
	}

	for _, t := range rows.Times {
		if err := tx.Exec(ctx, sparkload.StmtInsertTime, t.Args()...); err != nil {
			return FileStats{}, err
		}
	}
	stats.Rows.Times = len(rows.Times)

	for _, u := range rows.Users {
		if err := tx.Exec(ctx, sparkload.StmtInsertUser, u.Args()...); err != nil {
			return FileStats{}, err
		}
	}
	stats.Rows.Users = len(rows.Users)

	for i := range rows.Songplays {
		play := &rows.Songplays[i]
		if err := resolvePlay(ctx, tx, play); err != nil {
			stats.LookupErrors = append(stats.LookupErrors, err)
		}
		if !play.Resolved() {
			stats.UnresolvedPlays++
		}
		if err := tx.Exec(ctx, sparkload.StmtInsertSongplay, play.Args()...); err != nil {
			return FileStats{}, err
		}
	}
	stats.Rows.Songplays = len(rows.Songplays)

	return stats, nil
}

// resolvePlay fills in the song and artist ids of the first exact match.
// The play is left unresolved when it has no lookup key, nothing matches,
// or the query fails.
func resolvePlay(ctx context.Context, tx sparkload.Tx, play *records.SongplayRow) error {
	if play.Lookup == nil {
		return nil
	}

	var songID, artistID string
	found, err := tx.QueryOne(ctx, sparkload.StmtSelectSong, play.Lookup.Args(), &songID, &artistID)
	if err != nil {
		return fmt.Errorf("lookup for play %d (%q by %q): %w", play.PlayID, play.Lookup.Title, play.Lookup.Artist, err)
	}
	if found {
		play.Resolve(songID, artistID)
	}
	return nil
}
