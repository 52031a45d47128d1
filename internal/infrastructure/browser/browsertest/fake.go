package browsertest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"
)

var (
	_ output.Connector       = (*FakeConnector)(nil)
	_ output.SessionProvider = (*FakeProvider)(nil)
	_ output.Session         = (*FakeSession)(nil)
)

// FakeSession is an in-memory chat tab. Pressing Enter answers the filled
// prompt through Reply; navigating clears the rendered answers.
type FakeSession struct {
	// Reply produces the answer block for a prompt. An empty answer renders
	// nothing. Defaults to "echo: <prompt>".
	Reply func(prompt string) string
	// FailOn makes Fill fail for the given prompt.
	FailOn map[string]error
	// Errors makes the named method fail, e.g. "Navigate" or "Screenshot".
	Errors map[string]error
	// Hidden selectors never become visible in WaitVisible.
	Hidden map[string]bool
	// Reveals maps a clicked selector to the selector it makes visible.
	Reveals map[string]string
	// Stuck keeps generation running past every WaitHidden.
	Stuck bool

	mu        sync.Mutex
	visible   map[string]bool
	calls     []string
	draft     string
	blocks    []string
	submitted []string
	userAgent string
	closed    bool
}

func NewFakeSession() *FakeSession {
	return &FakeSession{
		FailOn:  map[string]error{},
		Errors:  map[string]error{},
		Hidden:  map[string]bool{},
		Reveals: map[string]string{},
		visible: map[string]bool{},
	}
}

// SetVisible controls what IsVisible reports for selector.
func (s *FakeSession) SetVisible(selector string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible[selector] = visible
}

func (s *FakeSession) record(method, detail string) error {
	s.calls = append(s.calls, method+" "+detail)
	return s.Errors[method]
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Navigate", url); err != nil {
		return err
	}
	s.blocks = nil
	s.draft = ""
	return nil
}

func (s *FakeSession) SetUserAgent(ctx context.Context, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("SetUserAgent", userAgent); err != nil {
		return err
	}
	s.userAgent = userAgent
	return nil
}

func (s *FakeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("WaitVisible", selector); err != nil {
		return entity.WaitTimedOut, err
	}
	if s.Hidden[selector] {
		return entity.WaitTimedOut, nil
	}
	return entity.WaitSatisfied, nil
}

func (s *FakeSession) WaitHidden(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("WaitHidden", selector); err != nil {
		return entity.WaitTimedOut, err
	}
	if s.Stuck {
		return entity.WaitTimedOut, nil
	}
	return entity.WaitSatisfied, nil
}

func (s *FakeSession) IsVisible(ctx context.Context, selector string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("IsVisible", selector); err != nil {
		return false, err
	}
	return s.visible[selector], nil
}

func (s *FakeSession) Click(ctx context.Context, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Click", selector); err != nil {
		return err
	}
	if target, ok := s.Reveals[selector]; ok {
		s.visible[target] = true
	}
	return nil
}

func (s *FakeSession) Fill(ctx context.Context, selector, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Fill", selector); err != nil {
		return err
	}
	if err := s.FailOn[text]; err != nil {
		return err
	}
	s.draft = text
	return nil
}

func (s *FakeSession) PressEnter(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("PressEnter", s.draft); err != nil {
		return err
	}
	s.submitted = append(s.submitted, s.draft)
	answer := "echo: " + s.draft
	if s.Reply != nil {
		answer = s.Reply(s.draft)
	}
	if answer != "" {
		s.blocks = append(s.blocks, answer)
	}
	s.draft = ""
	return nil
}

func (s *FakeSession) ReadTexts(ctx context.Context, selector string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ReadTexts", selector); err != nil {
		return nil, err
	}
	return append([]string{}, s.blocks...), nil
}

func (s *FakeSession) ReadHTML(ctx context.Context, selector string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ReadHTML", selector); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, fmt.Sprintf(`<div class="markdown" data-turn="1"><p>%s</p><button>copy</button></div>`, b))
	}
	return out, nil
}

func (s *FakeSession) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Screenshot", ""); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 8))); err != nil {
		return nil, err
	}
	return &entity.Screenshot{Data: buf.Bytes(), Format: "png", Width: 16, Height: 8}, nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.record("Close", "")
}

// Calls lists every method invocation as "<Method> <detail>".
func (s *FakeSession) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.calls...)
}

// Submitted lists the prompts that reached the chat, in order.
func (s *FakeSession) Submitted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.submitted...)
}

func (s *FakeSession) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgent
}

func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// FakeProvider opens FakeSessions built by New.
type FakeProvider struct {
	// New configures each tab. Defaults to NewFakeSession.
	New func(n int) *FakeSession
	// FailFirst makes the first FailFirst NewSession calls fail.
	FailFirst int

	mu       sync.Mutex
	attempts int
	sessions []*FakeSession
	closed   bool
}

func (p *FakeProvider) NewSession(ctx context.Context) (output.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempts++
	if p.attempts <= p.FailFirst {
		return nil, fmt.Errorf("open tab %d: target crashed", p.attempts)
	}

	var s *FakeSession
	if p.New != nil {
		s = p.New(len(p.sessions))
	} else {
		s = NewFakeSession()
	}
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *FakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *FakeProvider) Sessions() []*FakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakeSession{}, p.sessions...)
}

func (p *FakeProvider) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type FakeConnector struct {
	Provider *FakeProvider
	Err      error

	mu    sync.Mutex
	calls int
}

func (c *FakeConnector) Connect(ctx context.Context) (output.SessionProvider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Provider, nil
}

// Connects counts Connect calls.
func (c *FakeConnector) Connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
