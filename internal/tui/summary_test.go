package tui

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

func TestRenderSummary_Success(t *testing.T) {
	report := sparkload.RunReport{
		RunID: uuid.MustParse("6f1c2d4e-0000-4000-8000-000000000001"),
		Songs: sparkload.LoadReport{
			Dataset: "songs", Root: "data/song_data", FilesFound: 71, FilesProcessed: 71,
			Rows: sparkload.RowCounts{Songs: 71, Artists: 71},
		},
		Logs: sparkload.LoadReport{
			Dataset: "logs", Root: "data/log_data", FilesFound: 30, FilesProcessed: 30,
			Rows:            sparkload.RowCounts{Times: 6820, Users: 6820, Songplays: 6820},
			UnresolvedPlays: 6819,
		},
		Duration: 1500 * time.Millisecond,
	}

	out := RenderSummary(report, Palette{})

	assert.Contains(t, out, "load complete")
	assert.Contains(t, out, "6f1c2d4e-0000-4000-8000-000000000001")
	assert.Contains(t, out, "71/71 files from data/song_data: songs 71, artists 71")
	assert.Contains(t, out, "30/30 files from data/log_data: time 6820, users 6820, songplays 6820, unresolved 6819")
	assert.NotContains(t, out, "failed")
}

func TestRenderSummary_ListsFailures(t *testing.T) {
	var failures []sparkload.FileFailure
	for i := 0; i < maxListedFailures+2; i++ {
		failures = append(failures, sparkload.FileFailure{Path: fmt.Sprintf("log-%02d.json", i), Err: errors.New("boom")})
	}
	report := sparkload.RunReport{
		Logs: sparkload.LoadReport{
			Dataset: "logs", FilesFound: 20, FilesProcessed: 8, Failures: failures,
			RecordErrors: []sparkload.RecordFailure{{Path: "log-99.json", Err: errors.New("bad")}},
		},
	}

	out := RenderSummary(report, Palette{})

	assert.Contains(t, out, "load finished with failures")
	assert.Contains(t, out, "12 files failed")
	assert.Contains(t, out, "1 records skipped")
	assert.Contains(t, out, "log-00.json: boom")
	assert.NotContains(t, out, "log-11.json")
	assert.Contains(t, out, "... and 2 more")
}
