package lifecycle

import (
	"context"

	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/pkg/logger"
)

// Shutdown tears the daemon down: stop every live plugin, archive the
// sessions still open, close the stores and flush the logs. ctx bounds the
// plugin stops; archival and closing run regardless.
func (m *Module) Shutdown(ctx context.Context) {
	logger.InfoX("lifecycle", "shutdown: stopping plugins")
	m.supervisor.StopAll(ctx)

	m.tracker.ArchiveAll(context.Background(), usage.SessionCancelled)
	if err := m.tracker.Close(); err != nil {
		logger.WarnX("lifecycle", "close usage store: %v", err)
	}

	if m.history != nil {
		if err := m.history.Close(); err != nil {
			logger.WarnX("lifecycle", "close history store: %v", err)
		}
	}

	logger.InfoX("lifecycle", "shutdown complete")
	logger.FlushLog()
}
