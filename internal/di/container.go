package di

import (
	"fmt"
	"io"

	"chat-scraper/internal/application/port/input"
	"chat-scraper/internal/application/port/output"
	"chat-scraper/internal/infrastructure/browser/chromedp"
	"chat-scraper/internal/infrastructure/browser/rod"
	"chat-scraper/internal/infrastructure/config"
	"chat-scraper/internal/infrastructure/diagnostics"
	"chat-scraper/internal/infrastructure/logger"
	"chat-scraper/internal/infrastructure/store"
	"chat-scraper/internal/infrastructure/userinteraction"
	"chat-scraper/internal/usecase/orchestrator"
	"chat-scraper/internal/usecase/worker"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
)

type Container struct {
	Config   config.Config
	Logger   output.LoggerPort
	Store    *store.JSONStore
	Progress *userinteraction.ConsoleProgress
	Runner   input.BatchRunner
}

type Options struct {
	Fs afero.Fs
	// RunName becomes part of the log file name.
	RunName string
	// Console receives progress lines, LogConsole the human-readable log.
	Console    io.Writer
	LogConsole io.Writer
	// Connector replaces the configured browser driver.
	Connector output.Connector
}

func NewContainer(cfg config.Config, opts Options) (*Container, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	log, err := logger.NewLoggerAdapter(logger.Config{
		Level:   cfg.Log.Level,
		Dir:     cfg.Log.Dir,
		RunName: opts.RunName,
		Console: opts.LogConsole,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	resultStore := store.NewJSONStore(opts.Fs, cfg.OutputFile, log)
	progress := userinteraction.NewConsoleProgress(opts.Console)

	connector := opts.Connector
	if connector == nil {
		connector = NewConnector(cfg, log)
	}

	var failures output.FailureRecorder
	if cfg.ScreenshotDir != "" {
		failures = diagnostics.NewScreenshotRecorder(opts.Fs, cfg.ScreenshotDir)
	}

	var limiter *rate.Limiter
	if cfg.SubmitInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.SubmitInterval), 1)
	}

	runner := orchestrator.New(orchestrator.Config{
		Concurrency: cfg.Concurrency,
		Worker:      WorkerConfig(cfg),
	}, orchestrator.Deps{
		Store:     resultStore,
		Connector: connector,
		Logger:    log,
		Progress:  progress,
		Failures:  failures,
		Limiter:   limiter,
	})

	return &Container{
		Config:   cfg,
		Logger:   log,
		Store:    resultStore,
		Progress: progress,
		Runner:   runner,
	}, nil
}

func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}

// NewConnector picks the session driver named by cfg.Driver.
func NewConnector(cfg config.Config, log output.LoggerPort) output.Connector {
	if cfg.Driver == config.DriverChromedp {
		return chromedp.NewConnector(chromedp.Config{
			ControlURL:      cfg.CDPURL,
			ElementTimeout:  cfg.Timeouts.Element,
			PageLoadTimeout: cfg.Timeouts.PageLoad,
		}, log)
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.ControlURL = cfg.CDPURL
	browserCfg.ElementTimeout = cfg.Timeouts.Element
	browserCfg.PageLoadTimeout = cfg.Timeouts.PageLoad
	return rod.NewConnector(browserCfg, log)
}

func WorkerConfig(cfg config.Config) worker.Config {
	sel := cfg.Selectors
	t := cfg.Timeouts
	return worker.Config{
		BaseURL:       cfg.BaseURL,
		UserAgent:     cfg.UserAgent,
		ExtractFormat: cfg.ExtractFormat,
		Selectors: worker.Selectors{
			Input:             sel.Input,
			Send:              sel.Send,
			Stop:              sel.Stop,
			Response:          sel.Response,
			MenuButton:        sel.MenuButton,
			MenuExpanded:      sel.MenuExpanded,
			TempChatButton:    sel.TempChatButton,
			TempChatIndicator: sel.TempChatIndicator,
			ModeDropdown:      sel.ModeDropdown,
			ModeOption:        sel.ModeOption,
			RateLimit:         sel.RateLimit,
		},
		Timeouts: worker.Timeouts{
			Element:         t.Element,
			GenerationStart: t.GenerationStart,
			Generation:      t.Generation,
			Extract:         t.Extract,
			Settle:          t.Settle,
			TypeDelay:       t.TypeDelay,
		},
	}
}
