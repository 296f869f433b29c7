package compute

import "errors"

// Failure kinds surfaced from the provider boundary and the controller.
var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInstanceNotFound    = errors.New("instance not found")
	ErrTimeout             = errors.New("timed out waiting for instance state")
	ErrUnreachableState    = errors.New("instance can no longer reach the requested state")
)
