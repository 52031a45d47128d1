package di

import (
	"context"
	"io"
	"testing"

	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/infrastructure/browser/browsertest"
	"chat-scraper/internal/infrastructure/browser/chromedp"
	"chat-scraper/internal/infrastructure/browser/rod"
	"chat-scraper/internal/infrastructure/config"
	"chat-scraper/internal/infrastructure/logger"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Log.Dir = ""
	cfg.Timeouts.Settle = 0
	cfg.Timeouts.TypeDelay = 0
	cfg.OutputFile = "out.json"
	return cfg
}

func TestNewConnector_SelectsDriver(t *testing.T) {
	cfg := testConfig()

	assert.IsType(t, &rod.Connector{}, NewConnector(cfg, logger.NewNop()))

	cfg.Driver = config.DriverChromedp
	assert.IsType(t, &chromedp.Connector{}, NewConnector(cfg, logger.NewNop()))
}

func TestWorkerConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Selectors.RateLimit = "#quota"

	wc := WorkerConfig(cfg)

	assert.Equal(t, cfg.BaseURL, wc.BaseURL)
	assert.Equal(t, cfg.Selectors.Input, wc.Selectors.Input)
	assert.Equal(t, "#quota", wc.Selectors.RateLimit)
	assert.Equal(t, cfg.Timeouts.Generation, wc.Timeouts.Generation)
}

func TestContainer_RunsBatchAgainstFakeBrowser(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := testConfig()
	cfg.ScreenshotDir = "shots"
	cfg.SubmitInterval = 1

	provider := &browsertest.FakeProvider{}
	c, err := NewContainer(cfg, Options{
		Fs:         fsys,
		Console:    io.Discard,
		LogConsole: io.Discard,
		Connector:  &browsertest.FakeConnector{Provider: provider},
	})
	require.NoError(t, err)
	defer c.Close()

	summary, err := c.Runner.Run(context.Background(), []entity.Task{{ID: "1", Text: "A"}, {ID: "2", Text: "B"}})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Succeeded)

	records, err := c.Store.Records()
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
