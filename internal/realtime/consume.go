package realtime

import (
	"context"

	"github.com/stwalsh4118/estatedesk/internal/models"
)

// Consume calls fn for each event on sub until ctx is done or the
// subscription closes. It closes sub before returning.
func Consume(ctx context.Context, sub *Subscription, fn func(context.Context, models.ChangeEvent)) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			fn(ctx, ev)
		}
	}
}
