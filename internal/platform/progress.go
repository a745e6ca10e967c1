package platform

import (
	"context"
	"fmt"
)

// ProgressFunc receives human-readable progress lines.
type ProgressFunc func(msg string)

type progressKey struct{}

func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress forwards msg to the callback in ctx, if there is one.
// Scheduled and MCP runs carry none.
func ReportProgress(ctx context.Context, msg string) {
	if fn := progressFrom(ctx); fn != nil {
		fn(msg)
	}
}

// Progressf formats only when a callback is listening.
func Progressf(ctx context.Context, format string, args ...any) {
	if fn := progressFrom(ctx); fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}

func progressFrom(ctx context.Context) ProgressFunc {
	fn, _ := ctx.Value(progressKey{}).(ProgressFunc)
	return fn
}
