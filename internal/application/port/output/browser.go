package output

import (
	"context"
	"time"

	"chat-scraper/internal/domain/entity"
)

// Session is one browser tab owned by exactly one worker.
type Session interface {
	Navigate(ctx context.Context, url string) error
	SetUserAgent(ctx context.Context, userAgent string) error

	WaitVisible(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error)
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error)
	IsVisible(ctx context.Context, selector string) (bool, error)

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	PressEnter(ctx context.Context) error

	ReadTexts(ctx context.Context, selector string) ([]string, error)
	ReadHTML(ctx context.Context, selector string) ([]string, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)

	Close() error
}

// SessionProvider hands out tabs from one attached browser.
type SessionProvider interface {
	NewSession(ctx context.Context) (Session, error)
	// Close disconnects from the browser without terminating it.
	Close() error
}

type Connector interface {
	Connect(ctx context.Context) (SessionProvider, error)
}
