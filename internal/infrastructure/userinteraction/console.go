package userinteraction

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.ProgressPort = (*ConsoleProgress)(nil)

const previewLen = 80

// ConsoleProgress prints one line per task event. Workers call it
// concurrently, so every write holds the lock.
type ConsoleProgress struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleProgress(out io.Writer) *ConsoleProgress {
	if out == nil {
		out = color.Output
	}
	return &ConsoleProgress{out: out}
}

func (u *ConsoleProgress) ShowPlan(ctx context.Context, s entity.RunSummary) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "\n━━━ Run %s ━━━\n", s.RunID)

	dim := color.New(color.Faint)
	dim.Fprintf(u.out, "   %d tasks, %d already done, %d pending, %d tabs\n", s.Total, s.Skipped, s.Pending, s.Workers)
}

func (u *ConsoleProgress) ShowTaskStart(ctx context.Context, workerID int, taskID string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	yellow := color.New(color.FgYellow)
	yellow.Fprintf(u.out, "▶ [tab %d] %s\n", workerID, taskID)
}

func (u *ConsoleProgress) ShowTaskResult(ctx context.Context, workerID int, r entity.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()

	dim := color.New(color.Faint)
	if r.Failed() {
		red := color.New(color.FgRed)
		red.Fprintf(u.out, "❌ [tab %d] %s: ", workerID, r.TaskID)
		dim.Fprintln(u.out, preview(r.Output))
		return
	}

	green := color.New(color.FgGreen)
	green.Fprintf(u.out, "✓ [tab %d] %s: ", workerID, r.TaskID)
	dim.Fprintln(u.out, preview(r.Output))
}

func (u *ConsoleProgress) ShowSummary(ctx context.Context, s entity.RunSummary) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	if s.Pending == 0 {
		cyan.Fprintf(u.out, "\nAll %d tasks already have results.\n", s.Total)
		return
	}

	cyan.Fprintf(u.out, "\n━━━ Done in %s ━━━\n", s.Duration.Round(time.Second))
	color.New(color.FgGreen).Fprintf(u.out, "   succeeded: %d\n", s.Succeeded)

	failed := color.New(color.Faint)
	if s.Failed > 0 {
		failed = color.New(color.FgRed)
	}
	failed.Fprintf(u.out, "   failed:    %d\n", s.Failed)

	warn := color.New(color.FgYellow)
	if s.NotPersisted > 0 {
		warn.Fprintf(u.out, "   not saved: %d (see log)\n", s.NotPersisted)
	}
	if s.RateLimited {
		warn.Fprintln(u.out, "   rate limit reached")
	}
	if s.Leftover > 0 {
		warn.Fprintf(u.out, "   left for next run: %d\n", s.Leftover)
	}
}

// ShowStatus reports how far a batch has progressed without running it.
func (u *ConsoleProgress) ShowStatus(path string, total, completed int) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "%s\n", path)
	color.New(color.FgGreen).Fprintf(u.out, "   completed: %d/%d\n", completed, total)
	color.New(color.FgYellow).Fprintf(u.out, "   pending:   %d\n", total-completed)
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return truncate(s, previewLen)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
