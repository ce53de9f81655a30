package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/logger"
)

// AbortController manages cancellation of one dispatch run.
//
// It wraps context cancellation to provide
//   - explicit Abort() for external cancellation,
//   - an optional run timeout,
//   - thread-safe abort state tracking.
type AbortController struct {
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	down      bool
	sessionID string
}

// NewAbortController derives the controlled context from parent. A timeout
// greater than zero cancels the run automatically after that duration.
func NewAbortController(parent context.Context, sessionID string, timeout time.Duration) *AbortController {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	return &AbortController{
		ctx:       ctx,
		cancel:    cancel,
		sessionID: sessionID,
	}
}

// Context returns the controlled context. Every downstream call of the run
// uses it.
func (ac *AbortController) Context() context.Context {
	return ac.ctx
}

// Abort cancels the run and marks it as aborted.
//
// It is safe to call Abort multiple times.
func (ac *AbortController) Abort() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return
	}
	ac.down = true
	ac.cancel()
	logger.InfoX("dispatch", "session %s aborted", ac.sessionID)
}

// IsAborted returns true once the run is aborted or its context is done.
func (ac *AbortController) IsAborted() bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.down {
		return true
	}
	select {
	case <-ac.ctx.Done():
		return true
	default:
		return false
	}
}

// CheckAborted returns errno.ErrCancelled once the run is aborted.
func (ac *AbortController) CheckAborted() error {
	if ac.IsAborted() {
		return errno.ErrCancelled
	}
	return nil
}

// CleanUp releases the controlled context.
func (ac *AbortController) CleanUp() {
	ac.cancel()
}
