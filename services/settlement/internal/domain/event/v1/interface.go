package eventv1

import "context"

// Publisher delivers events to a broker.
//
//go:generate mockgen -source interface.go -destination=mock/interface_mock.go -package=eventv1_mock
type Publisher interface {
	// Publish sends events. Failures are reported but never undo settlement.
	Publish(ctx context.Context, events ...Event) error
}

// Dispatcher hands committed events to post-commit hooks without blocking
// the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, events ...Event)
}
