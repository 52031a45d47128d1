package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "SCRAPER"
	DefaultName = "scraper"
)

// Load reads configuration from path. With an empty path, scraper.yaml in
// the working directory is used when it exists. SCRAPER_* variables override
// file values, e.g. SCRAPER_TIMEOUTS_GENERATION=3m.
func Load(fsys afero.Fs, path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultName)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("base_url", cfg.BaseURL)
	v.SetDefault("cdp_url", cfg.CDPURL)
	v.SetDefault("driver", cfg.Driver)
	v.SetDefault("concurrency", cfg.Concurrency)
	v.SetDefault("input_file", cfg.InputFile)
	v.SetDefault("output_file", cfg.OutputFile)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("extract_format", cfg.ExtractFormat)
	v.SetDefault("screenshot_dir", cfg.ScreenshotDir)
	v.SetDefault("submit_interval", cfg.SubmitInterval.String())
	v.SetDefault("input.id_field", cfg.Input.IDField)
	v.SetDefault("input.prompt_field", cfg.Input.PromptField)
	v.SetDefault("timeouts.page_load", cfg.Timeouts.PageLoad.String())
	v.SetDefault("timeouts.element", cfg.Timeouts.Element.String())
	v.SetDefault("timeouts.generation_start", cfg.Timeouts.GenerationStart.String())
	v.SetDefault("timeouts.generation", cfg.Timeouts.Generation.String())
	v.SetDefault("timeouts.extract", cfg.Timeouts.Extract.String())
	v.SetDefault("timeouts.settle", cfg.Timeouts.Settle.String())
	v.SetDefault("timeouts.type_delay", cfg.Timeouts.TypeDelay.String())
	v.SetDefault("selectors.input", cfg.Selectors.Input)
	v.SetDefault("selectors.send", cfg.Selectors.Send)
	v.SetDefault("selectors.stop", cfg.Selectors.Stop)
	v.SetDefault("selectors.response", cfg.Selectors.Response)
	v.SetDefault("selectors.menu_button", cfg.Selectors.MenuButton)
	v.SetDefault("selectors.menu_expanded", cfg.Selectors.MenuExpanded)
	v.SetDefault("selectors.temp_chat_button", cfg.Selectors.TempChatButton)
	v.SetDefault("selectors.temp_chat_indicator", cfg.Selectors.TempChatIndicator)
	v.SetDefault("selectors.mode_dropdown", cfg.Selectors.ModeDropdown)
	v.SetDefault("selectors.mode_option", cfg.Selectors.ModeOption)
	v.SetDefault("selectors.rate_limit", cfg.Selectors.RateLimit)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.dir", cfg.Log.Dir)
}

func Validate(cfg Config) error {
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if err := requireURL("base_url", cfg.BaseURL, "http", "https"); err != nil {
		return err
	}
	if err := requireURL("cdp_url", cfg.CDPURL, "http", "https", "ws", "wss"); err != nil {
		return err
	}
	switch cfg.Driver {
	case DriverRod, DriverChromedp:
	default:
		return fmt.Errorf("unsupported driver %q (want %s or %s)", cfg.Driver, DriverRod, DriverChromedp)
	}
	switch cfg.ExtractFormat {
	case FormatText, FormatHTML:
	default:
		return fmt.Errorf("unsupported extract_format %q (want %s or %s)", cfg.ExtractFormat, FormatText, FormatHTML)
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log.level %q", cfg.Log.Level)
	}

	if cfg.OutputFile == "" {
		return fmt.Errorf("output_file is required")
	}
	if cfg.Input.IDField == "" || cfg.Input.PromptField == "" {
		return fmt.Errorf("input.id_field and input.prompt_field are required")
	}
	for key, sel := range map[string]string{
		"selectors.input":    cfg.Selectors.Input,
		"selectors.stop":     cfg.Selectors.Stop,
		"selectors.response": cfg.Selectors.Response,
	} {
		if strings.TrimSpace(sel) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}

	if cfg.SubmitInterval < 0 {
		return fmt.Errorf("submit_interval must not be negative")
	}
	t := cfg.Timeouts
	if t.PageLoad <= 0 || t.Element <= 0 || t.Generation <= 0 {
		return fmt.Errorf("timeouts.page_load, timeouts.element and timeouts.generation must be positive")
	}
	if t.GenerationStart < 0 || t.Extract < 0 || t.Settle < 0 || t.TypeDelay < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func requireURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s must include scheme and host, got %q", key, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported scheme %q", key, u.Scheme)
}
