package entity

import "time"

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// FailureCapture is a screenshot taken after a task failed, kept for debugging selectors.
type FailureCapture struct {
	TaskID   string
	WorkerID int
	TakenAt  time.Time
	Image    Screenshot
}
