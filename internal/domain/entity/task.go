package entity

type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusError   ResultStatus = "error"
)

// NoOutputExtracted is stored when the page rendered no response block.
const NoOutputExtracted = "No output extracted"

type Task struct {
	ID   string
	Text string
}

type Result struct {
	TaskID string
	Output string
	Status ResultStatus
}

func (r Result) Failed() bool {
	return r.Status == ResultStatusError
}

// Record is the persisted form of a Result.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (r Result) Record() Record {
	return Record{Key: r.TaskID, Value: r.Output}
}

type CompletedSet map[string]struct{}

func (s CompletedSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Pending returns tasks whose ids are not in the set, preserving input order.
func (s CompletedSet) Pending(tasks []Task) []Task {
	pending := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !s.Has(t.ID) {
			pending = append(pending, t)
		}
	}
	return pending
}
