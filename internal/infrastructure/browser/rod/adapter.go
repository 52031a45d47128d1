package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/url"
	"strings"
	"time"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

var (
	_ output.Connector       = (*Connector)(nil)
	_ output.SessionProvider = (*Provider)(nil)
	_ output.Session         = (*Session)(nil)
)

const (
	defaultElementTimeout  = 10 * time.Second
	defaultPageLoadTimeout = 30 * time.Second
)

// visibleJS mirrors jQuery's :visible check for the first match of a selector.
const visibleJS = `(selector) => {
	const el = document.querySelector(selector);
	return !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

const hiddenJS = `(selector) => {
	const el = document.querySelector(selector);
	return !el || !(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

// selectContentsJS selects the element's text so the next input replaces it.
// Works for form fields and contenteditable nodes.
const selectContentsJS = `() => {
	this.focus();
	if (typeof this.select === 'function') {
		this.select();
		return;
	}
	const range = document.createRange();
	range.selectNodeContents(this);
	const sel = window.getSelection();
	sel.removeAllRanges();
	sel.addRange(range);
}`

type BrowserConfig struct {
	// ControlURL is the DevTools endpoint of an already running Chrome,
	// either http://host:port or a ws:// debugger URL.
	ControlURL      string
	ElementTimeout  time.Duration
	PageLoadTimeout time.Duration
	SlowMotion      time.Duration
	Trace           bool
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		ControlURL:      "http://localhost:9222",
		ElementTimeout:  defaultElementTimeout,
		PageLoadTimeout: defaultPageLoadTimeout,
	}
}

type Connector struct {
	cfg    BrowserConfig
	logger output.LoggerPort
}

func NewConnector(cfg BrowserConfig, logger output.LoggerPort) *Connector {
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = defaultElementTimeout
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = defaultPageLoadTimeout
	}
	return &Connector{cfg: cfg, logger: logger.WithField("driver", "rod")}
}

// Connect attaches to the running browser. Any failure wraps entity.ErrConnection.
func (c *Connector) Connect(ctx context.Context) (output.SessionProvider, error) {
	c.logger.Info("Connecting to Chrome", "url", c.cfg.ControlURL)

	wsURL, err := launcher.ResolveURL(c.cfg.ControlURL)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", entity.ErrConnection, c.cfg.ControlURL, err)
	}

	// The connection outlives the caller's context; Provider.Close ends it.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	browser := rod.New().
		ControlURL(wsURL).
		Context(connCtx).
		Trace(c.cfg.Trace).
		SlowMotion(c.cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: connect %s: %v", entity.ErrConnection, wsURL, err)
	}

	c.logger.Info("Connected to Chrome")
	return &Provider{browser: browser, cancel: cancel, cfg: c.cfg}, nil
}

type Provider struct {
	browser *rod.Browser
	cancel  context.CancelFunc
	cfg     BrowserConfig
}

// NewSession opens a fresh tab in the attached browser's default context.
func (p *Provider) NewSession(ctx context.Context) (output.Session, error) {
	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Session{
		page:            page.Context(p.browser.GetContext()),
		elementTimeout:  p.cfg.ElementTimeout,
		pageLoadTimeout: p.cfg.PageLoadTimeout,
	}, nil
}

// Close drops the DevTools connection. The browser process keeps running.
func (p *Provider) Close() error {
	p.cancel()
	return nil
}

type Session struct {
	page            *rod.Page
	elementTimeout  time.Duration
	pageLoadTimeout time.Duration
}

func (s *Session) Navigate(ctx context.Context, target string) error {
	if err := validateURL(target); err != nil {
		return err
	}

	p := s.page.Context(ctx).Timeout(s.pageLoadTimeout)
	if err := p.Navigate(target); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (s *Session) SetUserAgent(ctx context.Context, userAgent string) error {
	err := s.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})
	if err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	return s.waitFor(ctx, visibleJS, selector, timeout)
}

func (s *Session) WaitHidden(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	return s.waitFor(ctx, hiddenJS, selector, timeout)
}

func (s *Session) waitFor(ctx context.Context, js, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.page.Context(waitCtx).Wait(rod.Eval(js, selector))
	switch {
	case err == nil:
		return entity.WaitSatisfied, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return entity.WaitTimedOut, nil
	default:
		return entity.WaitTimedOut, fmt.Errorf("wait for %s: %w", selector, err)
	}
}

func (s *Session) IsVisible(ctx context.Context, selector string) (bool, error) {
	res, err := s.page.Context(ctx).Eval(visibleJS, selector)
	if err != nil {
		return false, fmt.Errorf("check visibility of %s: %w", selector, err)
	}
	return res.Value.Bool(), nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	ctx, cancel := context.WithTimeout(ctx, s.elementTimeout)
	defer cancel()

	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill replaces the element's content with text.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	ctx, cancel := context.WithTimeout(ctx, s.elementTimeout)
	defer cancel()

	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}

	if _, err := el.Eval(selectContentsJS); err != nil {
		return fmt.Errorf("select contents of %s: %w", selector, err)
	}

	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.page.Context(ctx).Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	return nil
}

// ReadTexts returns the rendered text of every match, in document order.
func (s *Session) ReadTexts(ctx context.Context, selector string) ([]string, error) {
	return s.readAll(ctx, selector, (*rod.Element).Text)
}

// ReadHTML returns the outer HTML of every match, in document order.
func (s *Session) ReadHTML(ctx context.Context, selector string) ([]string, error) {
	return s.readAll(ctx, selector, (*rod.Element).HTML)
}

func (s *Session) readAll(ctx context.Context, selector string, read func(*rod.Element) (string, error)) ([]string, error) {
	elements, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", selector, err)
	}

	out := make([]string, 0, len(elements))
	for _, el := range elements {
		v, err := read(el)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", selector, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Session) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	shot := &entity.Screenshot{Data: imgBytes, Format: "jpeg"}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(imgBytes)); err == nil {
		shot.Width, shot.Height = cfg.Width, cfg.Height
	}
	return shot, nil
}

func (s *Session) Close() error {
	return s.page.Close()
}

// element finds the first match of a CSS or XPath selector, bounded by ctx.
func (s *Session) element(ctx context.Context, selector string) (*rod.Element, error) {
	var el *rod.Element
	var err error

	p := s.page.Context(ctx)
	if strings.HasPrefix(selector, "/") {
		el, err = p.ElementX(selector)
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", selector, err)
	}
	return el, nil
}

func validateURL(raw string) error {
	if raw == "about:blank" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", entity.ErrInvalidURL, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", entity.ErrInvalidURL, raw)
	}
	return nil
}
