package entity

// WaitOutcome reports how a bounded wait ended. A timeout is an outcome,
// not an error: callers decide whether to proceed.
type WaitOutcome int

const (
	WaitSatisfied WaitOutcome = iota
	WaitTimedOut
)

func (o WaitOutcome) String() string {
	switch o {
	case WaitSatisfied:
		return "satisfied"
	case WaitTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

func (o WaitOutcome) TimedOut() bool {
	return o == WaitTimedOut
}
