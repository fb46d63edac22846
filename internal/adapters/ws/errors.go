package ws

import "errors"

// Sentinel kinds for hub errors.
var (
	ErrHubClosed      = errors.New("hub closed")
	ErrMissingRoom    = errors.New("missing game type")
	ErrOriginRejected = errors.New("websocket origin not allowed")
)
