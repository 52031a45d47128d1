package input

import (
	"context"

	"chat-scraper/internal/domain/entity"
)

type BatchRunner interface {
	Run(ctx context.Context, tasks []entity.Task) (*entity.RunSummary, error)
}
