// internal/browser/session/context_utils.go
package session

import (
	"context"
)

// OperationContext scopes one CDP operation. The returned context carries the
// browser context's values (chromedp keeps its target there), ends when either
// context ends, and takes the earlier of the two deadlines. When opCtx ends first,
// context.Cause on the result reports why.
func OperationContext(browserCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(browserCtx)
	stop := context.AfterFunc(opCtx, func() {
		cancel(context.Cause(opCtx))
	})
	release := func() {
		stop()
		cancel(nil)
	}

	deadline, ok := opCtx.Deadline()
	if !ok {
		return ctx, release
	}
	ctx, cancelDeadline := context.WithDeadline(ctx, deadline)
	return ctx, func() {
		cancelDeadline()
		release()
	}
}
