package worker

type State int32

const (
	StateInitializing State = iota
	StateReady
	StateSubmitting
	StateAwaitingGeneration
	StateExtracting
	StateSaving
	StateResetting
	StateDrained
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingGeneration:
		return "awaiting_generation"
	case StateExtracting:
		return "extracting"
	case StateSaving:
		return "saving"
	case StateResetting:
		return "resetting"
	case StateDrained:
		return "drained"
	default:
		return "unknown"
	}
}
