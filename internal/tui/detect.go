package tui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// fdWriter is satisfied by *os.File.
type fdWriter interface {
	Fd() uintptr
}

// SupportsColor reports whether styled output should be written to w.
//
// Returns false if:
//   - w is not a terminal (pipe, file, buffer)
//   - NO_COLOR is set (https://no-color.org)
//   - SPARKLOAD_NO_COLOR=1 is set
//   - TERM=dumb
func SupportsColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" || os.Getenv("SPARKLOAD_NO_COLOR") == "1" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(fdWriter)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// PaletteFor returns the palette appropriate for w.
func PaletteFor(w io.Writer) Palette {
	return Palette{Color: SupportsColor(w)}
}
