package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"batch-01", "batch-01"},
		{"run id/with spaces", "run_id_with_spaces"},
		{"///", "run"},
		{"", "run"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitize(tt.in), tt.in)
	}
}

func TestLoggerAdapter_WithFieldsCarriesContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromCore(core)

	log.WithField("worker", 2).WithFields(map[string]any{"task": "101"}).Warn("task failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "task failed", entries[0].Message)
	assert.EqualValues(t, 2, ctx["worker"])
	assert.Equal(t, "101", ctx["task"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestNewLoggerAdapter_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	log, err := NewLoggerAdapter(Config{Level: "info", Dir: dir, RunName: "resume test", Console: &console})
	require.NoError(t, err)

	log.Debug("hidden on console")
	log.Info("run started", "pending", 3)
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "run started")
	assert.NotContains(t, console.String(), "hidden on console")

	files, err := filepath.Glob(filepath.Join(dir, "*_resume_test.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var messages []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		messages = append(messages, entry["message"].(string))
	}
	assert.Equal(t, []string{"hidden on console", "run started"}, messages)
}

func TestNewLoggerAdapter_InvalidLevel(t *testing.T) {
	_, err := NewLoggerAdapter(Config{Level: "loud"})
	assert.Error(t, err)
}
