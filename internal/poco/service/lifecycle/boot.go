package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/pkg/logger"
)

// Boot runs the startup sequence: scan the plugins root, materialize grants
// when the gate auto-approves, reconcile the supervisor and, when autostart
// is on, launch every approved plugin serially. Only the scan can fail the
// boot; everything after it logs and moves on.
func (m *Module) Boot(ctx context.Context) error {
	if err := m.registry.Scan(); err != nil {
		return err
	}

	if m.gate.AutoApprove() {
		m.grantAll()
	}
	m.supervisor.Sync()

	logger.InfoX("lifecycle", "boot scan found %d plugin(s), rejected %d manifest(s)",
		m.registry.Len(), len(m.registry.Failures()))

	if !m.autostart {
		logger.InfoX("lifecycle", "autostart off, plugins wait for a manual start")
		return nil
	}

	m.startAll(ctx)

	return nil
}

// grantAll persists every declared permission so auto-approved plugins show
// up as granted instead of silently bypassing the gate.
func (m *Module) grantAll() {
	for _, d := range m.registry.List() {
		if len(d.Permissions) == 0 {
			continue
		}
		if err := m.gate.Grant(d.ID, d.Permissions); err != nil {
			logger.WarnX("lifecycle", "auto-approve %s: %v", d.ID, err)
		}
	}
}

// startAll launches plugins one at a time in id order. A plugin that keeps
// failing is abandoned after maxStartAttempts; its siblings still start.
func (m *Module) startAll(ctx context.Context) {
	plugins := m.registry.List()
	logger.InfoX("lifecycle", "autostart launching %d plugin(s)", len(plugins))

	for i, d := range plugins {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && !m.pause(ctx) {
			return
		}

		if !m.gate.IsSatisfied(d.ID, d.Permissions) {
			logger.WarnX("lifecycle", "autostart skips %s: %v, missing %v",
				d.ID, errno.ErrNotApproved, m.gate.Missing(d.ID, d.Permissions))
			continue
		}

		m.startOne(ctx, d)
	}
}

func (m *Module) startOne(ctx context.Context, d *registry.PluginDescriptor) {
	var lastErr error
	for attempt := 1; attempt <= m.maxStartAttempts; attempt++ {
		if attempt > 1 {
			m.clearFailed(d.ID)
			if !m.pause(ctx) {
				return
			}
		}

		err := m.supervisor.Start(ctx, d.ID)
		switch {
		case err == nil:
			logger.InfoX("lifecycle", "autostart %s up on port %d (attempt %d)", d.ID, d.Port, attempt)
			return
		case errors.Is(err, errno.ErrAlreadyRunning):
			logger.InfoX("lifecycle", "autostart %s: %v", d.ID, err)
			return
		case errors.Is(err, errno.ErrPermissionDenied):
			logger.WarnX("lifecycle", "autostart %s: %v", d.ID, err)
			return
		}

		lastErr = err
		logger.WarnX("lifecycle", "autostart %s attempt %d/%d: %v", d.ID, attempt, m.maxStartAttempts, err)
	}

	logger.WarnX("lifecycle", "%v: %s still down after %d attempt(s), last error: %v",
		errno.ErrTooManyStartAttempts, d.ID, m.maxStartAttempts, lastErr)
}

// clearFailed lifts a failed instance back to stopped so the next attempt is
// not rejected by the start precondition.
func (m *Module) clearFailed(id string) {
	st, err := m.supervisor.Status(id)
	if err != nil || st.State != supervisor.StateFailed.String() {
		return
	}
	if err := m.supervisor.ClearFailure(id); err != nil {
		logger.WarnX("lifecycle", "clear %s before retry: %v", id, err)
	}
}

// pause sleeps for the inter-start delay, cut short by ctx.
func (m *Module) pause(ctx context.Context) bool {
	if m.startDelay <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(m.startDelay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
