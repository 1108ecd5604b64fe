package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/vvka-141/sparkload/pkg/sparkload"
)

// maxListedFailures bounds the failure list; the count is always shown.
const maxListedFailures = 10

// RenderSummary formats the end-of-run report.
func RenderSummary(report sparkload.RunReport, p Palette) string {
	var b strings.Builder

	status := p.Success(SymbolCheck + " load complete")
	if !report.OK() {
		status = p.Warning(SymbolCross + " load finished with failures")
	}
	fmt.Fprintf(&b, "%s %s\n", status, p.Muted(fmt.Sprintf("(run %s, %s)", report.RunID, report.Duration.Round(time.Millisecond))))

	writeDataset(&b, p, report.Songs, fmt.Sprintf("songs %d, artists %d", report.Songs.Rows.Songs, report.Songs.Rows.Artists))
	writeDataset(&b, p, report.Logs, fmt.Sprintf("time %d, users %d, songplays %d, unresolved %d",
		report.Logs.Rows.Times, report.Logs.Rows.Users, report.Logs.Rows.Songplays, report.Logs.UnresolvedPlays))

	return p.Box(strings.TrimRight(b.String(), "\n"))
}

func writeDataset(b *strings.Builder, p Palette, r sparkload.LoadReport, rows string) {
	name := r.Dataset
	if name == "" {
		name = "dataset"
	}
	fmt.Fprintf(b, "%s %d/%d files from %s: %s\n",
		p.Title(fmt.Sprintf("%-5s", name)), r.FilesProcessed, r.FilesFound, r.Root, p.Label(rows))

	if n := len(r.RecordErrors); n > 0 {
		fmt.Fprintf(b, "  %s\n", p.Warning(fmt.Sprintf("%d records skipped", n)))
	}
	if n := len(r.Failures); n > 0 {
		fmt.Fprintf(b, "  %s\n", p.Error(fmt.Sprintf("%d files failed", n)))
		for i, f := range r.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(b, "    %s\n", p.Muted(fmt.Sprintf("... and %d more", n-maxListedFailures)))
				break
			}
			fmt.Fprintf(b, "    %s %s\n", SymbolBullet, f.Error())
		}
	}
}
