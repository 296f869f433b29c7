package compute

import "context"

// Handle is a thin reference to one remote instance. It holds no state of its
// own; every call queries or mutates the provider live.
type Handle interface {
	ID() string
	Observe(ctx context.Context) (PowerState, error)
	IssueStart(ctx context.Context) error
	IssueStop(ctx context.Context) error
	DisplayName(ctx context.Context) (string, error)
}

// Session is an authenticated connection to a compute provider.
type Session interface {
	Instance(id string) Handle
}
