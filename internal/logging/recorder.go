package logging

import (
	"fmt"
	"strings"
	"sync"
)

// Level identifies which Logger method produced an Entry.
type Level string

const (
	LevelVerbose Level = "verbose"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Entry is one formatted message.
type Entry struct {
	Level   Level
	Message string
}

// Recorder keeps every message in memory. Tests use it to assert on
// progress and error output.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Verbose(format string, args ...interface{}) { r.add(LevelVerbose, format, args) }
func (r *Recorder) Info(format string, args ...interface{})    { r.add(LevelInfo, format, args) }
func (r *Recorder) Error(format string, args ...interface{})   { r.add(LevelError, format, args) }

func (r *Recorder) add(level Level, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: msg})
}

// Entries returns a copy of the recorded messages.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Messages returns the recorded messages of one level, in order.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any message of the level contains substr.
func (r *Recorder) Contains(level Level, substr string) bool {
	for _, msg := range r.Messages(level) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
