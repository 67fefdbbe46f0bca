package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrScanInProgress = errors.New("scan already in progress")
	ErrCooldownActive = errors.New("scan cooldown active")
	ErrFeedEmpty      = errors.New("feed returned no observations")
	ErrWSDisconnect   = errors.New("websocket disconnected")
)
