package entity

import "errors"

var (
	// ErrQueueEmpty is returned by Pop once every task has been handed out.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrQueueSealed is returned by Push after the queue was sealed.
	ErrQueueSealed = errors.New("queue sealed")
	// ErrConnection indicates the session provider endpoint is unreachable.
	ErrConnection = errors.New("session provider unreachable")
	// ErrInvalidInput indicates a malformed task input file.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited indicates the chat surface reported a rate limit.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidURL indicates a navigation target that is not http(s) or about:blank.
	ErrInvalidURL = errors.New("invalid url")
)
