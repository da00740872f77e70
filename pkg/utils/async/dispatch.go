package async

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
)

// Dispatch executes a handler asynchronously with panic recovery.
//
// The handler runs on a fresh background context so that it outlives the
// caller (e.g. an HTTP request that has already been answered), while the
// caller's logger is preserved. Errors and panics are logged and reported
// to Sentry when it is configured; they never propagate to the caller.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				ctxlog.From(newCtx).Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
				sentry.CurrentHub().CaptureException(fmt.Errorf("panic in async handler: %v", r))
			}
		}()

		if err := handler(newCtx); err != nil {
			ctxlog.From(newCtx).Error("error in async handler", "error", err)
			sentry.CurrentHub().CaptureException(err)
		}
	}()
}

// newBackgroundContext returns a context.Background() carrying the
// caller's ctxlog logger
func newBackgroundContext(ctx context.Context) context.Context {
	return ctxlog.With(context.Background(), ctxlog.From(ctx))
}
