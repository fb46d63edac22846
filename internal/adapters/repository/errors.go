package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrStore          = errors.New("store failure")
	ErrDuplicateID    = errors.New("duplicate result id")
	ErrClosed         = errors.New("store closed")
	ErrUnknownBackend = errors.New("unknown store backend")
)
