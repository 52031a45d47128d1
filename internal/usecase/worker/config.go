package worker

import "time"

const (
	FormatText = "text"
	FormatHTML = "html"
)

// Selectors locate the parts of the chat surface. Empty optional selectors
// disable the step that uses them.
type Selectors struct {
	Input    string
	Send     string
	Stop     string
	Response string

	MenuButton        string
	MenuExpanded      string
	TempChatButton    string
	TempChatIndicator string
	ModeDropdown      string
	ModeOption        string
	RateLimit         string
}

type Timeouts struct {
	Element         time.Duration
	GenerationStart time.Duration
	Generation      time.Duration
	Extract         time.Duration
	// Settle is slept after every navigation before probing the page.
	Settle time.Duration
	// TypeDelay is slept between filling the input and pressing Enter.
	TypeDelay time.Duration
}

type Config struct {
	BaseURL       string
	UserAgent     string
	ExtractFormat string
	Selectors     Selectors
	Timeouts      Timeouts
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Element:         30 * time.Second,
		GenerationStart: 5 * time.Second,
		Generation:      120 * time.Second,
		Extract:         5 * time.Second,
		Settle:          3 * time.Second,
		TypeDelay:       500 * time.Millisecond,
	}
}
