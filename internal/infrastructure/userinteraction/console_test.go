package userinteraction

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"chat-scraper/internal/domain/entity"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newTestConsole(t *testing.T) (*ConsoleProgress, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	buf := &bytes.Buffer{}
	return NewConsoleProgress(buf), buf
}

func TestConsoleProgress_TaskLines(t *testing.T) {
	u, buf := newTestConsole(t)
	ctx := context.Background()

	u.ShowTaskStart(ctx, 2, "101")
	u.ShowTaskResult(ctx, 2, entity.Result{TaskID: "101", Output: "Paris\nis the capital", Status: entity.ResultStatusSuccess})
	u.ShowTaskResult(ctx, 3, entity.Result{TaskID: "102", Output: "fill input: detached", Status: entity.ResultStatusError})

	assert.Equal(t, "▶ [tab 2] 101\n✓ [tab 2] 101: Paris is the capital\n❌ [tab 3] 102: fill input: detached\n", buf.String())
}

func TestConsoleProgress_Summary(t *testing.T) {
	u, buf := newTestConsole(t)

	u.ShowSummary(context.Background(), entity.RunSummary{
		Pending:     5,
		Succeeded:   3,
		Failed:      1,
		Leftover:    1,
		RateLimited: true,
		Duration:    90*time.Second + 300*time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Done in 1m30s")
	assert.Contains(t, out, "succeeded: 3")
	assert.Contains(t, out, "failed:    1")
	assert.Contains(t, out, "rate limit reached")
	assert.Contains(t, out, "left for next run: 1")
	assert.NotContains(t, out, "not saved")
}

func TestConsoleProgress_NothingPending(t *testing.T) {
	u, buf := newTestConsole(t)

	u.ShowSummary(context.Background(), entity.RunSummary{Total: 7})

	assert.Equal(t, "\nAll 7 tasks already have results.\n", buf.String())
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("ж", 100)

	assert.Equal(t, "a b c", preview("a\n b\t\tc "))
	assert.Equal(t, strings.Repeat("ж", previewLen)+"...", preview(long))
}
