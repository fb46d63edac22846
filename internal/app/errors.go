package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrIDGeneration means no unique id could be produced for a result.
	ErrIDGeneration = errors.New("id generation failed")
	// ErrNotStarted is returned by operations called before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
)
