package eventpublisher

import (
	"context"
	stderrors "errors"

	eventv1 "github.com/muhammadchandra19/settlement/services/settlement/internal/domain/event/v1"
)

// Multi publishes to every publisher, even when an earlier one failed.
type Multi []eventv1.Publisher

// Publish implements eventv1.Publisher.
func (m Multi) Publish(ctx context.Context, events ...eventv1.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
