package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLogger_Verbose(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, true).Verbose("lookup for %q: %v", "Setanta matins", "no match")
	assert.Equal(t, "[VERBOSE] lookup for \"Setanta matins\": no match\n", buf.String())
}

func TestConsoleLogger_Verbose_WhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Verbose("hidden %d", 1)
	assert.Empty(t, buf.String())
}

func TestConsoleLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, false)
	logger.Info("%d files found in %s", 71, "data/song_data")
	logger.Info("1/71 files processed.")
	assert.Equal(t, "71 files found in data/song_data\n1/71 files processed.\n", buf.String())
}

func TestConsoleLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Error("file %s failed", "a.json")
	assert.Equal(t, "[ERROR] file a.json failed\n", buf.String())
}

func TestConsoleLogger_NoArgsKeepsPercent(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, false).Info("100% done")
	assert.Equal(t, "100% done\n", buf.String())
}

func TestConsoleLogger_ConcurrentLinesStayWhole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("line %d", i)
			logger.Verbose("detail %d", i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 40)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "line ") || strings.HasPrefix(line, "[VERBOSE] detail "), line)
	}
}

func TestNullLogger(t *testing.T) {
	logger := NewNullLogger()
	assert.NotPanics(t, func() {
		logger.Verbose("x %d", 1)
		logger.Info("y")
		logger.Error("z")
	})
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.Info("%d files found in %s", 2, "logs")
	r.Error("lookup failed: %v", "timeout")
	r.Verbose("detail")

	assert.Equal(t, []string{"2 files found in logs"}, r.Messages(LevelInfo))
	assert.True(t, r.Contains(LevelError, "timeout"))
	assert.False(t, r.Contains(LevelInfo, "timeout"))
	assert.Len(t, r.Entries(), 3)
}
