package control

import "errors"

var (
	// ErrNoClient is returned by NewService without a device client.
	ErrNoClient = errors.New("control: device client is required")

	// ErrNoRegistry is returned by NewService without a device registry.
	ErrNoRegistry = errors.New("control: device registry is required")
)
