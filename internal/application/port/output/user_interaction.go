package output

import (
	"context"

	"chat-scraper/internal/domain/entity"
)

type ProgressPort interface {
	ShowPlan(ctx context.Context, summary entity.RunSummary)
	ShowTaskStart(ctx context.Context, workerID int, taskID string)
	ShowTaskResult(ctx context.Context, workerID int, result entity.Result)
	ShowSummary(ctx context.Context, summary entity.RunSummary)
}

type FailureRecorder interface {
	Record(ctx context.Context, capture entity.FailureCapture) (string, error)
}
