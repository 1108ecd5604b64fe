package loader

import (
	"context"

	"github.com/vvka-141/sparkload/internal/records"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// SongExtractor loads song metadata documents. Each document yields exactly
// one song row and one artist row.
type SongExtractor struct{}

func NewSongExtractor() *SongExtractor {
	return &SongExtractor{}
}

func (e *SongExtractor) Name() string { return "songs" }

// Apply inserts the song, then its artist. A malformed document fails the
// whole file since it holds a single record.
func (e *SongExtractor) Apply(ctx context.Context, content []byte, tx sparkload.Tx) (FileStats, error) {
	doc, err := records.ParseSong(content)
	if err != nil {
		return FileStats{}, err
	}
	song, artist, err := records.ExtractSong(doc)
	if err != nil {
		return FileStats{}, err
	}

	if err := tx.Exec(ctx, sparkload.StmtInsertSong, song.Args()...); err != nil {
		return FileStats{}, err
	}
	if err := tx.Exec(ctx, sparkload.StmtInsertArtist, artist.Args()...); err != nil {
		return FileStats{}, err
	}

	return FileStats{Rows: sparkload.RowCounts{Songs: 1, Artists: 1}}, nil
}
