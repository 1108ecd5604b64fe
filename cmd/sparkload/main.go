package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/vvka-141/sparkload/internal/cli"
	"github.com/vvka-141/sparkload/pkg/sparkload"
)

func main() {
	os.Exit(run(cli.Execute, os.Stderr))
}

// run executes the command tree and maps its outcome to an exit code.
// A panic is reported with its stack trace and exits with ExitPanic.
func run(execute func() error, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "panic: %v\n%s\n", r, debug.Stack())
			code = sparkload.ExitPanic
		}
	}()

	if err := execute(); err != nil {
		return sparkload.ExitCodeForError(err)
	}
	return sparkload.ExitSuccess
}
