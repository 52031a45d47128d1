package rod

import (
	"context"
	"testing"
	"time"

	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/infrastructure/browser/browsertest"
	"chat-scraper/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSession launches a local headless Chrome and attaches to it the same
// way a run attaches to the user's browser.
func newTestSession(t *testing.T) *Session {
	t.Helper()
	controlURL := browsertest.LaunchChrome(t)

	cfg := DefaultConfig()
	cfg.ControlURL = controlURL
	cfg.ElementTimeout = 3 * time.Second

	provider, err := NewConnector(cfg, logger.NewNop()).Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	session, err := provider.NewSession(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session.(*Session)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:9222", cfg.ControlURL)
	assert.Equal(t, defaultElementTimeout, cfg.ElementTimeout)
	assert.Equal(t, defaultPageLoadTimeout, cfg.PageLoadTimeout)
	assert.False(t, cfg.Trace)
}

func TestNewConnector_ZeroTimeoutsAreDefaulted(t *testing.T) {
	c := NewConnector(BrowserConfig{ControlURL: "http://localhost:9222"}, logger.NewNop())

	assert.Equal(t, defaultElementTimeout, c.cfg.ElementTimeout)
	assert.Equal(t, defaultPageLoadTimeout, c.cfg.PageLoadTimeout)
}

func TestConnector_UnreachableEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ControlURL = "http://127.0.0.1:1"

	_, err := NewConnector(cfg, logger.NewNop()).Connect(context.Background())

	assert.ErrorIs(t, err, entity.ErrConnection)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://gemini.google.com/app", false},
		{"http", "http://127.0.0.1:8080/", false},
		{"blank", "about:blank", false},
		{"Empty URL", "", true},
		{"Invalid scheme", "ftp://example.com", true},
		{"JavaScript URL", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, entity.ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSession_SubmitAndExtract(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))
	require.NoError(t, s.SetUserAgent(ctx, "chat-scraper-test/1.0"))

	require.NoError(t, s.Fill(ctx, browsertest.SelectorInput, "hello"))
	require.NoError(t, s.PressEnter(ctx))

	started, err := s.WaitVisible(ctx, browsertest.SelectorStop, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitSatisfied, started)

	finished, err := s.WaitHidden(ctx, browsertest.SelectorStop, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitSatisfied, finished)

	texts, err := s.ReadTexts(ctx, browsertest.SelectorResponse)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "echo: hello", texts[0])

	html, err := s.ReadHTML(ctx, browsertest.SelectorResponse)
	require.NoError(t, err)
	require.Len(t, html, 1)
	assert.Contains(t, html[0], "<b>hello</b>")
}

func TestSession_WaitTimeoutIsAnOutcome(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))

	outcome, err := s.WaitVisible(ctx, browsertest.SelectorNeverVisible, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitTimedOut, outcome)

	outcome, err = s.WaitHidden(ctx, browsertest.SelectorSend, 200*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitTimedOut, outcome)
}

func TestSession_WaitTimeoutLeavesSessionUsable(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))

	outcome, err := s.WaitVisible(ctx, browsertest.SelectorNeverVisible, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, entity.WaitTimedOut, outcome)

	require.NoError(t, s.Click(ctx, browsertest.SelectorMenuButton))
	outcome, err = s.WaitVisible(ctx, browsertest.SelectorMenuExpanded, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, entity.WaitSatisfied, outcome)
}

func TestSession_FillReplacesExistingText(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))
	require.NoError(t, s.Fill(ctx, browsertest.SelectorInput, "first draft"))
	require.NoError(t, s.Fill(ctx, browsertest.SelectorInput, "second"))

	texts, err := s.ReadTexts(ctx, browsertest.SelectorInput)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, "second", texts[0])
}

func TestSession_ClickAndVisibility(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))

	visible, err := s.IsVisible(ctx, browsertest.SelectorTempIndicator)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, s.Click(ctx, browsertest.SelectorTempButton))

	visible, err = s.IsVisible(ctx, browsertest.SelectorTempIndicator)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestSession_ClickMissingElement(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	s.elementTimeout = 200 * time.Millisecond
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))

	err := s.Click(ctx, "#does-not-exist")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "element not found")
}

func TestSession_Screenshot(t *testing.T) {
	server := browsertest.NewChatServer(t)
	s := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, server.URL))

	shot, err := s.Screenshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", shot.Format)
	assert.NotEmpty(t, shot.Data)
	assert.Positive(t, shot.Width)
}

func TestSession_NavigateInvalidURL(t *testing.T) {
	s := newTestSession(t)

	err := s.Navigate(context.Background(), "javascript:alert(1)")

	assert.ErrorIs(t, err, entity.ErrInvalidURL)
}
