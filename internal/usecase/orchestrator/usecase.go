// Package orchestrator runs one resumable batch: it skips tasks that already
// have a persisted result, spreads the rest over a bounded pool of tab workers
// and waits for them to drain.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-scraper/internal/application/port/input"
	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/usecase/queue"
	"chat-scraper/internal/usecase/worker"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var _ input.BatchRunner = (*UseCase)(nil)

const drainTimeout = time.Second

type Config struct {
	Concurrency int
	Worker      worker.Config
}

type Deps struct {
	Store     output.ResultStore
	Connector output.Connector
	Logger    output.LoggerPort

	// Optional.
	Progress output.ProgressPort
	Failures output.FailureRecorder
	Limiter  *rate.Limiter
	NewRunID func() string
}

type UseCase struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *UseCase {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if deps.Progress == nil {
		deps.Progress = silentProgress{}
	}
	return &UseCase{cfg: cfg, deps: deps}
}

// Run processes every task without a persisted result. Cancelling ctx stops
// workers between tasks; the unprocessed remainder is reported as leftover and
// picked up by the next run.
func (uc *UseCase) Run(ctx context.Context, tasks []entity.Task) (*entity.RunSummary, error) {
	started := time.Now()
	summary := &entity.RunSummary{RunID: uc.deps.NewRunID(), Total: len(tasks)}
	log := uc.deps.Logger.WithField("run_id", summary.RunID)

	completed := uc.deps.Store.LoadCompletedIDs()
	pending := completed.Pending(tasks)
	summary.Pending = len(pending)
	summary.Skipped = len(tasks) - len(pending)
	log.Info("Run planned", "total", summary.Total, "skipped", summary.Skipped, "pending", summary.Pending)

	if len(pending) == 0 {
		log.Info("Every task already has a result, nothing to do")
		summary.Duration = time.Since(started)
		uc.deps.Progress.ShowSummary(ctx, *summary)
		return summary, nil
	}

	q := queue.New()
	if err := q.Push(pending...); err != nil {
		return nil, fmt.Errorf("enqueue tasks: %w", err)
	}
	q.Seal()
	log.Debug("Queue populated", "size", q.Size())

	provider, err := uc.deps.Connector.Connect(ctx)
	if err != nil {
		if !errors.Is(err, entity.ErrConnection) {
			err = fmt.Errorf("%w: %v", entity.ErrConnection, err)
		}
		log.Error("Cannot reach browser, aborting run", "error", err)
		return nil, err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.Warn("Failed to disconnect from browser", "error", err)
		}
		log.Debug("Disconnected from browser")
	}()

	summary.Workers = min(uc.cfg.Concurrency, len(pending))
	uc.deps.Progress.ShowPlan(ctx, *summary)
	log.Info("Spawning worker tabs", "workers", summary.Workers)

	reports := uc.runWorkers(ctx, provider, q, summary.Workers, log)

	opened := 0
	for _, r := range reports {
		if r.opened {
			opened++
		}
		summary.Succeeded += r.Succeeded
		summary.Failed += r.Failed
		summary.NotPersisted += r.NotPersisted
		if errors.Is(r.Err, entity.ErrRateLimited) {
			summary.RateLimited = true
		}
	}

	if leftover := q.Remaining(); len(leftover) > 0 {
		summary.Leftover = len(leftover)
		log.Warn("Tasks left for the next run", "count", len(leftover), "first", leftover[0].ID)
	} else if err := awaitDrain(ctx, q); err != nil {
		log.Error("Queue not drained after workers exited", "unfinished", q.Unfinished(), "error", err)
	} else {
		log.Info("Queue drained")
	}

	summary.Duration = time.Since(started)
	uc.deps.Progress.ShowSummary(ctx, *summary)
	log.Info("Run finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"not_persisted", summary.NotPersisted,
		"leftover", summary.Leftover,
		"duration", summary.Duration.String(),
	)

	if opened == 0 {
		return summary, fmt.Errorf("%w: no tab could be opened", entity.ErrConnection)
	}
	return summary, nil
}

type workerReport struct {
	worker.Report
	opened bool
}

func (uc *UseCase) runWorkers(ctx context.Context, provider output.SessionProvider, q *queue.Queue, n int, log output.LoggerPort) []workerReport {
	reports := make([]workerReport, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		id := i + 1
		g.Go(func() error {
			reports[i].WorkerID = id

			session, err := provider.NewSession(ctx)
			if err != nil {
				log.Error("Failed to open tab, worker not started", "worker", id, "error", err)
				reports[i].Err = err
				return nil
			}
			reports[i].opened = true

			w := worker.New(id, uc.cfg.Worker, session, worker.Deps{
				Queue:    q,
				Store:    uc.deps.Store,
				Logger:   log,
				Progress: uc.deps.Progress,
				Failures: uc.deps.Failures,
				Limiter:  uc.deps.Limiter,
			})
			reports[i].Report = w.Run(ctx)
			log.Debug("Worker exited", "worker", id, "state", w.State().String())
			return nil
		})
	}
	// Workers report problems through their Report, never through the group.
	_ = g.Wait()

	return reports
}

// awaitDrain confirms every popped task was acknowledged. Workers have exited
// by now, so the wait is short.
func awaitDrain(ctx context.Context, q *queue.Queue) error {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	return q.Wait(waitCtx)
}

type silentProgress struct{}

func (silentProgress) ShowPlan(context.Context, entity.RunSummary) {}
func (silentProgress) ShowTaskStart(context.Context, int, string) {}
func (silentProgress) ShowTaskResult(context.Context, int, entity.Result) {}
func (silentProgress) ShowSummary(context.Context, entity.RunSummary) {}
