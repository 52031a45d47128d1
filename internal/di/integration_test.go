package di

import (
	"context"
	"io"
	"testing"
	"time"

	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/infrastructure/browser/browsertest"
	"chat-scraper/internal/infrastructure/config"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func launchChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	return browsertest.LaunchChrome(t)
}

func chatConfig(serverURL, controlURL, driver string) config.Config {
	cfg := testConfig()
	cfg.BaseURL = serverURL
	cfg.CDPURL = controlURL
	cfg.Driver = driver
	cfg.Concurrency = 2
	cfg.Timeouts = config.TimeoutsConfig{
		PageLoad:        10 * time.Second,
		Element:         3 * time.Second,
		GenerationStart: 2 * time.Second,
		Generation:      5 * time.Second,
		Extract:         time.Second,
	}
	cfg.Selectors = config.SelectorsConfig{
		Input:             browsertest.SelectorInput,
		Send:              browsertest.SelectorSend,
		Stop:              browsertest.SelectorStop,
		Response:          browsertest.SelectorResponse,
		MenuButton:        browsertest.SelectorMenuButton,
		MenuExpanded:      browsertest.SelectorMenuExpanded,
		TempChatButton:    browsertest.SelectorTempButton,
		TempChatIndicator: browsertest.SelectorTempIndicator,
	}
	return cfg
}

func TestIntegration_BatchAgainstChatPage(t *testing.T) {
	controlURL := launchChrome(t)
	server := browsertest.NewChatServer(t)

	for _, driver := range []string{config.DriverRod, config.DriverChromedp} {
		t.Run(driver, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, "out.json", []byte(`[{"key": "1", "value": "kept"}]`), 0644))

			c, err := NewContainer(chatConfig(server.URL, controlURL, driver), Options{
				Fs:         fsys,
				Console:    io.Discard,
				LogConsole: io.Discard,
			})
			require.NoError(t, err)
			defer c.Close()

			summary, err := c.Runner.Run(context.Background(), []entity.Task{
				{ID: "1", Text: "skipped"},
				{ID: "2", Text: "hello"},
				{ID: "3", Text: "world"},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Skipped)
			assert.Equal(t, 2, summary.Workers)
			assert.Equal(t, 2, summary.Succeeded)

			records, err := c.Store.Records()
			require.NoError(t, err)
			values := map[string]string{}
			for _, r := range records {
				values[r.Key] = r.Value
			}
			assert.Equal(t, map[string]string{"1": "kept", "2": "echo: hello", "3": "echo: world"}, values)
		})
	}
}
