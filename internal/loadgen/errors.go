package loadgen

import "errors"

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid load config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrMismatch      = errors.New("served state does not match submitted results")
)
