package logging

import "github.com/vvka-141/sparkload/pkg/sparkload"

// NullLogger discards all log messages.
type NullLogger struct{}

func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Verbose(format string, args ...interface{}) {}
func (l *NullLogger) Info(format string, args ...interface{})    {}
func (l *NullLogger) Error(format string, args ...interface{})   {}

var (
	_ sparkload.Logger = (*NullLogger)(nil)
	_ sparkload.Logger = (*ConsoleLogger)(nil)
	_ sparkload.Logger = (*Recorder)(nil)
)
