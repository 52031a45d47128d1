package output

import "chat-scraper/internal/domain/entity"

type ResultStore interface {
	LoadCompletedIDs() entity.CompletedSet
	Append(rec entity.Record) error
	Records() ([]entity.Record, error)
}
