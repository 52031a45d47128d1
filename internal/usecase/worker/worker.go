// Package worker drives one browser tab through the chat surface: it pulls
// tasks from the shared queue until the queue runs dry, persists one result
// per task and resets the conversation between tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/infrastructure/browser/htmlclean"

	"golang.org/x/time/rate"
)

// TaskSource is the consuming side of the run queue.
type TaskSource interface {
	Pop() (entity.Task, error)
	Done()
}

type Deps struct {
	Queue  TaskSource
	Store  output.ResultStore
	Logger output.LoggerPort

	// Optional.
	Progress output.ProgressPort
	Failures output.FailureRecorder
	Limiter  *rate.Limiter
}

// Interaction records how the bounded waits of one task ended.
type Interaction struct {
	TaskID   string
	Start    entity.WaitOutcome
	Finish   entity.WaitOutcome
	Rendered entity.WaitOutcome
}

// StartSeen reports whether the in-progress indicator ever appeared.
func (i Interaction) StartSeen() bool {
	return i.Start == entity.WaitSatisfied
}

// Completed reports whether generation finished within its timeout.
func (i Interaction) Completed() bool {
	return i.Finish == entity.WaitSatisfied
}

type Report struct {
	WorkerID     int
	Succeeded    int
	Failed       int
	NotPersisted int
	Interactions []Interaction
	// Err is nil when the queue ran dry, entity.ErrRateLimited on an early
	// exit, or the cancellation cause when a stop was requested.
	Err error
}

func (r Report) Processed() int {
	return r.Succeeded + r.Failed
}

type Worker struct {
	id      int
	cfg     Config
	session output.Session
	deps    Deps
	logger  output.LoggerPort
	state   atomic.Int32
}

func New(id int, cfg Config, session output.Session, deps Deps) *Worker {
	if cfg.ExtractFormat == "" {
		cfg.ExtractFormat = FormatText
	}
	if deps.Progress == nil {
		deps.Progress = nopProgress{}
	}
	return &Worker{
		id:      id,
		cfg:     cfg,
		session: session,
		deps:    deps,
		logger:  deps.Logger.WithField("worker", id),
	}
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	prev := State(w.state.Swap(int32(s)))
	if prev != s {
		w.logger.Debug("State transition", "from", prev.String(), "to", s.String())
	}
}

// Run processes tasks until the queue is empty, a rate limit shows up or ctx
// is cancelled. Cancellation is only observed between tasks: the task in
// flight always runs to its persisted result. The session is closed on return.
func (w *Worker) Run(ctx context.Context) Report {
	report := Report{WorkerID: w.id}
	work := context.WithoutCancel(ctx)

	w.setState(StateInitializing)
	w.logger.Info("Worker starting")
	w.initialize(work)
	w.setState(StateReady)

	report.Err = w.loop(ctx, work, &report)

	w.setState(StateDrained)
	if err := w.session.Close(); err != nil {
		w.logger.Warn("Failed to close tab", "error", err)
	}
	w.logger.Info("Worker drained",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"not_persisted", report.NotPersisted,
	)
	return report
}

func (w *Worker) loop(ctx, work context.Context, report *Report) error {
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info("Stop requested, leaving remaining tasks queued", "error", err)
			return err
		}

		if w.rateLimited(work) {
			w.logger.Warn("Rate limit detected, worker stops early")
			return entity.ErrRateLimited
		}

		task, err := w.deps.Queue.Pop()
		if errors.Is(err, entity.ErrQueueEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pop task: %w", err)
		}

		w.handle(work, task, report)
		w.setState(StateReady)
	}
}

func (w *Worker) handle(ctx context.Context, task entity.Task, report *Report) {
	log := w.logger.WithField("task_id", task.ID)
	log.Info("Processing task")
	w.deps.Progress.ShowTaskStart(ctx, w.id, task.ID)

	result, interaction := w.process(ctx, task, log)
	report.Interactions = append(report.Interactions, interaction)
	if result.Failed() {
		report.Failed++
	} else {
		report.Succeeded++
	}

	w.setState(StateSaving)
	if err := w.deps.Store.Append(result.Record()); err != nil {
		log.Error("Result not persisted, continuing", "error", err)
		report.NotPersisted++
	}
	w.deps.Queue.Done()
	w.deps.Progress.ShowTaskResult(ctx, w.id, result)
	log.Info("Task completed", "status", string(result.Status))

	w.setState(StateResetting)
	w.reset(ctx)
}

func (w *Worker) process(ctx context.Context, task entity.Task, log output.LoggerPort) (entity.Result, Interaction) {
	in := Interaction{TaskID: task.ID}

	w.ensureTemporaryChat(ctx)
	w.ensurePreferredMode(ctx)

	out, err := w.interact(ctx, task, &in, log)
	if err != nil {
		log.Error("Task failed", "error", err)
		w.captureFailure(ctx, task, log)
		return entity.Result{TaskID: task.ID, Output: err.Error(), Status: entity.ResultStatusError}, in
	}
	return entity.Result{TaskID: task.ID, Output: out, Status: entity.ResultStatusSuccess}, in
}

func (w *Worker) interact(ctx context.Context, task entity.Task, in *Interaction, log output.LoggerPort) (string, error) {
	sel, t := w.cfg.Selectors, w.cfg.Timeouts

	w.setState(StateSubmitting)
	if err := w.submit(ctx, task.Text); err != nil {
		return "", err
	}

	w.setState(StateAwaitingGeneration)
	start, err := w.session.WaitVisible(ctx, sel.Stop, t.GenerationStart)
	if err != nil {
		return "", fmt.Errorf("await generation start: %w", err)
	}
	in.Start = start
	if start.TimedOut() {
		log.Debug("Generation start not observed, proceeding")
	}

	finish, err := w.session.WaitHidden(ctx, sel.Stop, t.Generation)
	if err != nil {
		return "", fmt.Errorf("await generation: %w", err)
	}
	in.Finish = finish
	if finish.TimedOut() {
		log.Warn("Generation still running after timeout, extracting what is rendered", "timeout", t.Generation)
	}

	w.setState(StateExtracting)
	return w.extract(ctx, in)
}

func (w *Worker) submit(ctx context.Context, text string) error {
	sel, t := w.cfg.Selectors, w.cfg.Timeouts

	outcome, err := w.session.WaitVisible(ctx, sel.Input, t.Element)
	if err != nil {
		return fmt.Errorf("wait for input: %w", err)
	}
	if outcome.TimedOut() {
		return fmt.Errorf("input %s not visible after %s", sel.Input, t.Element)
	}

	if w.deps.Limiter != nil {
		if err := w.deps.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("submission pacing: %w", err)
		}
	}

	if err := w.session.Click(ctx, sel.Input); err != nil {
		return fmt.Errorf("focus input: %w", err)
	}
	if err := w.session.Fill(ctx, sel.Input, text); err != nil {
		return fmt.Errorf("fill input: %w", err)
	}
	sleep(ctx, t.TypeDelay)

	enterErr := w.session.PressEnter(ctx)
	if enterErr == nil {
		return nil
	}
	if sel.Send == "" {
		return fmt.Errorf("submit: %w", enterErr)
	}
	if err := w.session.Click(ctx, sel.Send); err != nil {
		return fmt.Errorf("submit: %w", errors.Join(enterErr, err))
	}
	return nil
}

func (w *Worker) extract(ctx context.Context, in *Interaction) (string, error) {
	sel := w.cfg.Selectors.Response

	rendered, err := w.session.WaitVisible(ctx, sel, w.cfg.Timeouts.Extract)
	if err != nil {
		return "", fmt.Errorf("await response: %w", err)
	}
	in.Rendered = rendered

	var blocks []string
	if w.cfg.ExtractFormat == FormatHTML {
		blocks, err = w.session.ReadHTML(ctx, sel)
	} else {
		blocks, err = w.session.ReadTexts(ctx, sel)
	}
	if err != nil {
		return "", fmt.Errorf("extract response: %w", err)
	}
	if len(blocks) == 0 {
		return entity.NoOutputExtracted, nil
	}

	last := blocks[len(blocks)-1]
	if w.cfg.ExtractFormat == FormatHTML {
		last = htmlclean.Clean(last, nil)
	}
	return last, nil
}

func (w *Worker) initialize(ctx context.Context) {
	if ua := w.cfg.UserAgent; ua != "" {
		if err := w.session.SetUserAgent(ctx, ua); err != nil {
			w.logger.Warn("Failed to override user agent", "error", err)
		} else {
			w.logger.Debug("User agent overridden")
		}
	}

	if err := w.navigate(ctx); err != nil {
		w.logger.Error("Initial navigation failed", "url", w.cfg.BaseURL, "error", err)
	} else {
		w.logger.Info("Tab initialized", "url", w.cfg.BaseURL)
	}

	w.expandMenu(ctx)
	w.ensureTemporaryChat(ctx)
}

// reset opens a clean surface for the next task.
func (w *Worker) reset(ctx context.Context) {
	if err := w.navigate(ctx); err != nil {
		w.logger.Error("Failed to reset chat", "error", err)
		return
	}
	w.expandMenu(ctx)
	w.ensureTemporaryChat(ctx)
}

func (w *Worker) navigate(ctx context.Context) error {
	if err := w.session.Navigate(ctx, w.cfg.BaseURL); err != nil {
		return err
	}
	sleep(ctx, w.cfg.Timeouts.Settle)
	return nil
}

func (w *Worker) expandMenu(ctx context.Context) {
	sel := w.cfg.Selectors
	if sel.MenuButton == "" {
		return
	}

	if sel.MenuExpanded != "" {
		if visible, err := w.session.IsVisible(ctx, sel.MenuExpanded); err == nil && visible {
			w.logger.Debug("Side menu already expanded")
			return
		}
	}

	if err := w.clickWhenVisible(ctx, sel.MenuButton); err != nil {
		w.logger.Warn("Failed to expand side menu", "error", err)
		return
	}
	w.logger.Debug("Side menu expanded")
}

// ensureTemporaryChat switches the conversation to the ephemeral mode unless
// the indicator shows it is already active.
func (w *Worker) ensureTemporaryChat(ctx context.Context) {
	sel, t := w.cfg.Selectors, w.cfg.Timeouts
	if sel.TempChatButton == "" {
		return
	}

	if _, err := w.session.WaitVisible(ctx, sel.Input, t.Element); err != nil {
		w.logger.Warn("Chat input check failed", "error", err)
	}

	if sel.TempChatIndicator != "" {
		if visible, err := w.session.IsVisible(ctx, sel.TempChatIndicator); err == nil && visible {
			w.logger.Debug("Already in temporary chat")
			return
		}
	}

	if err := w.clickWhenVisible(ctx, sel.TempChatButton); err != nil {
		w.logger.Warn("Failed to enable temporary chat", "error", err)
		return
	}

	if sel.TempChatIndicator == "" {
		return
	}
	outcome, err := w.session.WaitVisible(ctx, sel.TempChatIndicator, t.Extract)
	if err != nil || outcome.TimedOut() {
		w.logger.Warn("Could not confirm temporary chat state", "error", err)
		return
	}
	w.logger.Debug("Temporary chat enabled")
}

func (w *Worker) ensurePreferredMode(ctx context.Context) {
	sel := w.cfg.Selectors
	if sel.ModeDropdown == "" || sel.ModeOption == "" {
		return
	}

	if err := w.clickWhenVisible(ctx, sel.ModeDropdown); err != nil {
		w.logger.Warn("Could not open mode dropdown", "error", err)
		return
	}
	if err := w.clickWhenVisible(ctx, sel.ModeOption); err != nil {
		w.logger.Warn("Could not select preferred mode", "error", err)
		return
	}
	sleep(ctx, w.cfg.Timeouts.TypeDelay)
}

func (w *Worker) rateLimited(ctx context.Context) bool {
	sel := w.cfg.Selectors.RateLimit
	if sel == "" {
		return false
	}
	visible, err := w.session.IsVisible(ctx, sel)
	if err != nil {
		w.logger.Debug("Rate limit probe failed", "error", err)
		return false
	}
	return visible
}

func (w *Worker) clickWhenVisible(ctx context.Context, selector string) error {
	timeout := w.cfg.Timeouts.Element
	outcome, err := w.session.WaitVisible(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if outcome.TimedOut() {
		return fmt.Errorf("%s not visible after %s", selector, timeout)
	}
	return w.session.Click(ctx, selector)
}

func (w *Worker) captureFailure(ctx context.Context, task entity.Task, log output.LoggerPort) {
	if w.deps.Failures == nil {
		return
	}

	shot, err := w.session.Screenshot(ctx)
	if err != nil {
		log.Warn("Failure screenshot unavailable", "error", err)
		return
	}

	path, err := w.deps.Failures.Record(ctx, entity.FailureCapture{
		TaskID:   task.ID,
		WorkerID: w.id,
		TakenAt:  time.Now(),
		Image:    *shot,
	})
	if err != nil {
		log.Warn("Failed to save failure screenshot", "error", err)
		return
	}
	log.Info("Failure screenshot saved", "path", path)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

type nopProgress struct{}

func (nopProgress) ShowPlan(context.Context, entity.RunSummary) {}
func (nopProgress) ShowTaskStart(context.Context, int, string) {}
func (nopProgress) ShowTaskResult(context.Context, int, entity.Result) {}
func (nopProgress) ShowSummary(context.Context, entity.RunSummary) {}
