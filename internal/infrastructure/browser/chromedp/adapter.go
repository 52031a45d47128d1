// Package chromedp implements the session driver on top of chromedp, attached
// to a running Chrome through a remote allocator.
package chromedp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/url"
	"sync"
	"time"

	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/domain/entity"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
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

const visibleFn = `(selector) => {
	const el = document.querySelector(selector);
	return !!el && !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

const hiddenFn = `(selector) => {
	const el = document.querySelector(selector);
	return !el || !(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
}`

const selectContentsFn = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.focus();
	if (typeof el.select === 'function') {
		el.select();
	} else {
		const range = document.createRange();
		range.selectNodeContents(el);
		const sel = window.getSelection();
		sel.removeAllRanges();
		sel.addRange(range);
	}
	return true;
}`

type Config struct {
	ControlURL      string
	ElementTimeout  time.Duration
	PageLoadTimeout time.Duration
}

// runFunc executes actions on a chromedp context.
type runFunc func(ctx context.Context, actions ...chromedp.Action) error

type Connector struct {
	cfg    Config
	logger output.LoggerPort
	run    runFunc
}

func NewConnector(cfg Config, logger output.LoggerPort) *Connector {
	if cfg.ElementTimeout <= 0 {
		cfg.ElementTimeout = defaultElementTimeout
	}
	if cfg.PageLoadTimeout <= 0 {
		cfg.PageLoadTimeout = defaultPageLoadTimeout
	}
	return &Connector{cfg: cfg, logger: logger.WithField("driver", "chromedp"), run: chromedp.Run}
}

func (c *Connector) Connect(ctx context.Context) (output.SessionProvider, error) {
	c.logger.Info("Connecting to Chrome", "url", c.cfg.ControlURL)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.WithoutCancel(ctx), c.cfg.ControlURL)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	closeAll := sync.OnceFunc(func() {
		browserCancel()
		allocCancel()
	})

	err := startBounded(ctx, c.cfg.PageLoadTimeout, closeAll, func() error {
		return c.run(browserCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", entity.ErrConnection, c.cfg.ControlURL, err)
	}

	c.logger.Info("Connected to Chrome")
	return &Provider{browserCtx: browserCtx, cancel: closeAll, cfg: c.cfg, run: c.run}, nil
}

type Provider struct {
	browserCtx context.Context
	cancel     func()
	cfg        Config
	run        runFunc
}

// NewSession opens a tab. The tab's event loop lives on its own context until
// Session.Close.
func (p *Provider) NewSession(ctx context.Context) (output.Session, error) {
	tabCtx, cancel := chromedp.NewContext(p.browserCtx)
	closeTab := sync.OnceFunc(cancel)

	err := startBounded(ctx, p.cfg.PageLoadTimeout, closeTab, func() error {
		return p.run(tabCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Session{
		tabCtx:          tabCtx,
		cancel:          closeTab,
		elementTimeout:  p.cfg.ElementTimeout,
		pageLoadTimeout: p.cfg.PageLoadTimeout,
	}, nil
}

// startBounded runs the first action on a chromedp context. chromedp binds the
// websocket and the tab event loop to the ctx of that first Run, so it must be
// the long-lived context itself. The timeout and the caller's ctx cancel it
// only while start is still running; any failure cancels it too.
func startBounded(ctx context.Context, timeout time.Duration, cancel func(), start func() error) error {
	timer := time.AfterFunc(timeout, cancel)
	stop := context.AfterFunc(ctx, cancel)

	err := start()
	expired := !timer.Stop()
	interrupted := !stop()

	switch {
	case err != nil:
	case interrupted:
		err = ctx.Err()
	case expired:
		err = fmt.Errorf("timed out after %s", timeout)
	}
	if err != nil {
		cancel()
	}
	return err
}

// Close drops the connection. A remote allocator never terminates the browser.
func (p *Provider) Close() error {
	p.cancel()
	return nil
}

type Session struct {
	tabCtx          context.Context
	cancel          func()
	elementTimeout  time.Duration
	pageLoadTimeout time.Duration
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *Session) Navigate(ctx context.Context, target string) error {
	if err := validateURL(target); err != nil {
		return err
	}
	if err := s.run(ctx, s.pageLoadTimeout, chromedp.Navigate(target)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *Session) SetUserAgent(ctx context.Context, userAgent string) error {
	err := s.run(ctx, s.elementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetUserAgentOverride(userAgent).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}
	return nil
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	return s.poll(ctx, visibleFn, selector, timeout)
}

func (s *Session) WaitHidden(ctx context.Context, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	return s.poll(ctx, hiddenFn, selector, timeout)
}

func (s *Session) poll(ctx context.Context, fn, selector string, timeout time.Duration) (entity.WaitOutcome, error) {
	var ok bool
	err := s.run(ctx, timeout, chromedp.PollFunction(fn, &ok,
		chromedp.WithPollingArgs(selector),
		chromedp.WithPollingInterval(100*time.Millisecond),
	))
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
	var visible bool
	if err := s.run(ctx, s.elementTimeout, chromedp.Evaluate(call(visibleFn, selector), &visible)); err != nil {
		return false, fmt.Errorf("check visibility of %s: %w", selector, err)
	}
	return visible, nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.elementTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Fill replaces the element's content; it works for inputs and contenteditable nodes.
func (s *Session) Fill(ctx context.Context, selector, text string) error {
	var found bool
	err := s.run(ctx, s.elementTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(call(selectContentsFn, selector), &found),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return input.InsertText(text).Do(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if !found {
		return fmt.Errorf("fill %s: element disappeared", selector)
	}
	return nil
}

func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.run(ctx, s.elementTimeout, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	return nil
}

func (s *Session) ReadTexts(ctx context.Context, selector string) ([]string, error) {
	return s.collect(ctx, selector, "innerText")
}

func (s *Session) ReadHTML(ctx context.Context, selector string) ([]string, error) {
	return s.collect(ctx, selector, "outerHTML")
}

func (s *Session) collect(ctx context.Context, selector, property string) ([]string, error) {
	fn := fmt.Sprintf(`(selector) => Array.from(document.querySelectorAll(selector)).map((el) => el.%s)`, property)
	var out []string
	if err := s.run(ctx, s.elementTimeout, chromedp.Evaluate(call(fn, selector), &out)); err != nil {
		return nil, fmt.Errorf("read %s: %w", selector, err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (s *Session) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	var data []byte
	err := s.run(ctx, s.elementTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatJpeg).
			WithQuality(80).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	shot := &entity.Screenshot{Data: data, Format: "jpeg"}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		shot.Width, shot.Height = cfg.Width, cfg.Height
	}
	return shot, nil
}

// Close closes the tab this session created.
func (s *Session) Close() error {
	s.cancel()
	return nil
}

// call renders an immediately invoked function expression with one string argument.
func call(fn, arg string) string {
	quoted, _ := json.Marshal(arg)
	return fmt.Sprintf("(%s)(%s)", fn, quoted)
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
