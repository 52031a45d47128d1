// Package config loads the static run configuration from defaults, an
// optional YAML file and SCRAPER_* environment variables.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"

	FormatText = "text"
	FormatHTML = "html"
)

type Config struct {
	BaseURL       string `mapstructure:"base_url" yaml:"base_url"`
	CDPURL        string `mapstructure:"cdp_url" yaml:"cdp_url"`
	Driver        string `mapstructure:"driver" yaml:"driver"`
	Concurrency   int    `mapstructure:"concurrency" yaml:"concurrency"`
	InputFile     string `mapstructure:"input_file" yaml:"input_file"`
	OutputFile    string `mapstructure:"output_file" yaml:"output_file"`
	UserAgent     string `mapstructure:"user_agent" yaml:"user_agent"`
	ExtractFormat string `mapstructure:"extract_format" yaml:"extract_format"`
	ScreenshotDir string `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`

	// SubmitInterval is the minimum gap between two submissions across all tabs.
	SubmitInterval time.Duration `mapstructure:"submit_interval" yaml:"-"`

	Input     InputConfig     `mapstructure:"input" yaml:"input"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Selectors SelectorsConfig `mapstructure:"selectors" yaml:"selectors"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type InputConfig struct {
	IDField     string `mapstructure:"id_field" yaml:"id_field"`
	PromptField string `mapstructure:"prompt_field" yaml:"prompt_field"`
}

type TimeoutsConfig struct {
	PageLoad        time.Duration `mapstructure:"page_load"`
	Element         time.Duration `mapstructure:"element"`
	GenerationStart time.Duration `mapstructure:"generation_start"`
	Generation      time.Duration `mapstructure:"generation"`
	Extract         time.Duration `mapstructure:"extract"`
	Settle          time.Duration `mapstructure:"settle"`
	TypeDelay       time.Duration `mapstructure:"type_delay"`
}

type SelectorsConfig struct {
	Input             string `mapstructure:"input" yaml:"input"`
	Send              string `mapstructure:"send" yaml:"send"`
	Stop              string `mapstructure:"stop" yaml:"stop"`
	Response          string `mapstructure:"response" yaml:"response"`
	MenuButton        string `mapstructure:"menu_button" yaml:"menu_button"`
	MenuExpanded      string `mapstructure:"menu_expanded" yaml:"menu_expanded"`
	TempChatButton    string `mapstructure:"temp_chat_button" yaml:"temp_chat_button"`
	TempChatIndicator string `mapstructure:"temp_chat_indicator" yaml:"temp_chat_indicator"`
	ModeDropdown      string `mapstructure:"mode_dropdown" yaml:"mode_dropdown"`
	ModeOption        string `mapstructure:"mode_option" yaml:"mode_option"`
	RateLimit         string `mapstructure:"rate_limit" yaml:"rate_limit"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Dir   string `mapstructure:"dir" yaml:"dir"`
}

// Default mirrors the chat surface the tool was first written against.
func Default() Config {
	return Config{
		BaseURL:       "https://gemini.google.com/u/1/app",
		CDPURL:        "http://localhost:9222",
		Driver:        DriverRod,
		Concurrency:   4,
		InputFile:     "prompts.json",
		OutputFile:    "_2initial_prompts_outputs.json",
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ExtractFormat: FormatText,
		Input: InputConfig{
			IDField:     "id",
			PromptField: "prompt",
		},
		Timeouts: TimeoutsConfig{
			PageLoad:        30 * time.Second,
			Element:         30 * time.Second,
			GenerationStart: 5 * time.Second,
			Generation:      120 * time.Second,
			Extract:         5 * time.Second,
			Settle:          3 * time.Second,
			TypeDelay:       500 * time.Millisecond,
		},
		Selectors: SelectorsConfig{
			Input:             "div[contenteditable='true'][role='textbox']",
			Send:              "button[aria-label*='Send']",
			Stop:              "button[aria-label*='Stop']",
			Response:          ".markdown",
			MenuButton:        "mat-icon[data-mat-icon-name='menu']",
			MenuExpanded:      "mat-icon[data-mat-icon-name='search']",
			TempChatButton:    "button[data-test-id='temp-chat-button']",
			TempChatIndicator: "div[data-placeholder='Ask questions in a temporary chat']",
			ModeDropdown:      "mat-icon[data-mat-icon-name='keyboard_arrow_down']",
			ModeOption:        "button[data-test-id='bard-mode-option-thinking']",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "log",
		},
	}
}

// MarshalYAML renders durations as "30s" rather than nanoseconds.
func (c Config) MarshalYAML() (any, error) {
	type plain Config
	return struct {
		Plain          plain  `yaml:",inline"`
		SubmitInterval string `yaml:"submit_interval"`
	}{plain(c), c.SubmitInterval.String()}, nil
}

func (t TimeoutsConfig) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, kv := range []struct {
		key string
		val time.Duration
	}{
		{"page_load", t.PageLoad},
		{"element", t.Element},
		{"generation_start", t.GenerationStart},
		{"generation", t.Generation},
		{"extract", t.Extract},
		{"settle", t.Settle},
		{"type_delay", t.TypeDelay},
	} {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: kv.val.String()},
		)
	}
	return node, nil
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
