package main

import (
	"bytes"
	"context"
	"testing"

	"chat-scraper/internal/domain/entity"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quietConfig = `
input_file: prompts.json
output_file: out/results.json
log:
  dir: ""
  level: error
`

func execute(t *testing.T, fsys afero.Fs, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(fsys)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fsys, name, []byte(body), 0644))
	}
	return fsys
}

func TestConfigCommand_PrintsEffectiveConfig(t *testing.T) {
	fsys := seed(t, map[string]string{"scraper.yaml": "concurrency: 6\n"})

	out, err := execute(t, fsys, "config", "--config", "scraper.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "concurrency: 6")
	assert.Contains(t, out, "generation: 2m0s")
}

func TestStatusCommand(t *testing.T) {
	fsys := seed(t, map[string]string{
		"scraper.yaml":     quietConfig,
		"prompts.json":     `[{"id": "1", "prompt": "A"}, {"id": "2", "prompt": "B"}, {"id": "3", "prompt": "C"}]`,
		"out/results.json": `[{"key": "2", "value": "done"}]`,
	})

	out, err := execute(t, fsys, "status", "-c", "scraper.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "completed: 1/3")
	assert.Contains(t, out, "pending:   2")
}

func TestRunCommand_InvalidInputIsFatal(t *testing.T) {
	fsys := seed(t, map[string]string{
		"scraper.yaml": quietConfig,
		"prompts.json": `{"id": "1"}`,
	})

	_, err := execute(t, fsys, "run", "-c", "scraper.yaml")

	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestRunCommand_RejectsBadFlags(t *testing.T) {
	fsys := seed(t, map[string]string{"scraper.yaml": quietConfig})

	_, err := execute(t, fsys, "run", "-c", "scraper.yaml", "--concurrency", "0")

	assert.ErrorContains(t, err, "concurrency must be at least 1")
}

func TestRunCommand_NothingPending(t *testing.T) {
	fsys := seed(t, map[string]string{
		"scraper.yaml":     quietConfig,
		"prompts.json":     `[{"id": "1", "prompt": "A"}, {"id": "2", "prompt": "B"}]`,
		"out/results.json": `[{"key": "1", "value": "x"}, {"key": "2", "value": "y"}]`,
	})

	out, err := execute(t, fsys, "run", "-c", "scraper.yaml")

	require.NoError(t, err)
	assert.Contains(t, out, "All 2 tasks already have results.")
}

func TestRunCommand_OnlyFilterNarrowsBatch(t *testing.T) {
	fsys := seed(t, map[string]string{
		"scraper.yaml":     quietConfig,
		"prompts.json":     `[{"id": "a1", "prompt": "A"}, {"id": "b1", "prompt": "B"}]`,
		"out/results.json": `[{"key": "a1", "value": "x"}]`,
	})

	out, err := execute(t, fsys, "run", "-c", "scraper.yaml", "--only", "a*")

	require.NoError(t, err)
	assert.Contains(t, out, "All 1 tasks already have results.")
}
