package loader

import (
	"context"

	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// Extractor applies one document to an open transaction.
//
// Apply returns an error for anything that must roll the file back: an
// unreadable document or a failed write. Problems confined to a single
// record are reported in FileStats and do not fail the file.
type Extractor interface {
	// Name identifies the dataset in logs and reports ("songs", "logs").
	Name() string

	Apply(ctx context.Context, content []byte, tx sparkload.Tx) (FileStats, error)
}

// FileStats describes what one successful Apply wrote.
type FileStats struct {
	Rows sparkload.RowCounts

	// RecordErrors lists the records that were skipped.
	RecordErrors []error

	// LookupErrors lists song lookups that failed and left a play unresolved.
	LookupErrors []error

	// UnresolvedPlays counts songplays written with null song and artist ids.
	UnresolvedPlays int

	// Filtered counts records dropped because they are not relevant.
	Filtered int
}
