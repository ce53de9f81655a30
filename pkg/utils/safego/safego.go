package safego

import (
	"context"
	"runtime/debug"

	"github.com/libreassistant/poco/pkg/logger"
)

// Go runs fn on a new goroutine, recovering and logging panics instead of
// taking the process down. ctx is accepted for call-site symmetry; fn is
// expected to observe it.
func Go(ctx context.Context, fn func()) {
	_ = ctx

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("[safego] goroutine panic: %v\n%s", r, debug.Stack())
			}
		}()

		fn()
	}()
}
