package entity

import "time"

type RunSummary struct {
	RunID        string
	Total        int
	Skipped      int
	Pending      int
	Workers      int
	Succeeded    int
	Failed       int
	NotPersisted int
	Leftover     int
	RateLimited  bool
	Duration     time.Duration
}

// Processed counts tasks that produced a result in this run.
func (s RunSummary) Processed() int {
	return s.Succeeded + s.Failed
}
