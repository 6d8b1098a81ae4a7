package runner

import "context"

// Observer receives each log entry as the node that produced it
// completes. The async run path uses this to stream progress; the entry
// is also part of the final Result either way.
type Observer func(LogEntry)

type observerKey struct{}

// WithObserver attaches an observer to the context.
func WithObserver(ctx context.Context, fn Observer) context.Context {
	if fn == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, fn)
}

// observerFrom retrieves the observer from the context, or a no-op.
func observerFrom(ctx context.Context) Observer {
	if fn, ok := ctx.Value(observerKey{}).(Observer); ok && fn != nil {
		return fn
	}
	return func(LogEntry) {}
}
