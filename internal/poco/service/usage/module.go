package usage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/logger"
)

// Config is the usage tracker configuration.
type Config struct {
	// ArchiveSize bounds how many finished sessions the archive keeps.
	ArchiveSize int

	// Store persists archived sessions. Nil selects the in-memory archive.
	Store ArchiveStore
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the tracker configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.ArchiveSize <= 0 {
		c.ArchiveSize = 100
	}
	if c.Store == nil {
		c.Store = NewMemoryArchive()
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the tracker.
func (c CompletedConfig) New() (*Module, error) {
	return &Module{
		archiveSize: c.ArchiveSize,
		archive:     c.Store,
		active:      make(map[string]*session),
	}, nil
}

// Module tracks plugin invocations per dispatch session and keeps a bounded
// archive of finished sessions.
type Module struct {
	archiveSize int
	archive     ArchiveStore

	mu     sync.RWMutex
	active map[string]*session
}

// StartSession opens a new session and returns its id.
func (m *Module) StartSession() string {
	id := uuid.New().String()

	m.mu.Lock()
	m.active[id] = newSession(id)
	m.mu.Unlock()

	logger.DebugX("usage", "session %s started", id)

	return id
}

func (m *Module) get(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.active[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrSessionNotFound, id)
	}

	return s, nil
}

// RecordInvocation appends one invocation to the session and returns its
// index.
func (m *Module) RecordInvocation(sessionID string, rec InvocationRecord) (int, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return 0, err
	}

	return s.record(rec), nil
}

// UpdateInvocationResult settles the outcome of a previously recorded
// invocation.
func (m *Module) UpdateInvocationResult(sessionID string, index int, status InvocationStatus, errMsg string, duration time.Duration) error {
	s, err := m.get(sessionID)
	if err != nil {
		return err
	}

	return s.update(index, status, errMsg, duration)
}

// CheckConsecutiveDuplicate reports whether fingerprint repeats the
// session's most recent invocation.
func (m *Module) CheckConsecutiveDuplicate(sessionID, fingerprint string) (bool, error) {
	s, err := m.get(sessionID)
	if err != nil {
		return false, err
	}

	last := s.lastFingerprint()

	return last != "" && last == fingerprint, nil
}

// SessionSummary returns a detached copy of the session, looking first at
// active sessions and then at the archive.
func (m *Module) SessionSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	if s, err := m.get(sessionID); err == nil {
		return s.summary()
	}

	return m.archive.Get(ctx, sessionID)
}

// ArchiveSession closes the session with status, moves its summary into the
// archive and trims the archive to its bound. Archiving a session twice
// fails with ErrSessionClosed.
func (m *Module) ArchiveSession(ctx context.Context, sessionID string, status SessionStatus) error {
	m.mu.Lock()
	s, ok := m.active[sessionID]
	if ok {
		delete(m.active, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		if _, err := m.archive.Get(ctx, sessionID); err == nil {
			return fmt.Errorf("%w: %s", errno.ErrSessionClosed, sessionID)
		}
		return fmt.Errorf("%w: %s", errno.ErrSessionNotFound, sessionID)
	}

	s.close(status)
	summary, err := s.summary()
	if err != nil {
		return err
	}

	if err := m.archive.Put(ctx, summary); err != nil {
		return fmt.Errorf("archive session %s: %w", sessionID, err)
	}
	if err := m.archive.Trim(ctx, m.archiveSize); err != nil {
		return fmt.Errorf("trim archive: %w", err)
	}

	logger.DebugX("usage", "session %s archived as %s with %d invocation(s)",
		sessionID, status, len(summary.Invocations))

	return nil
}

// ArchiveAll archives every still-active session, used on shutdown.
func (m *Module) ArchiveAll(ctx context.Context, status SessionStatus) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.ArchiveSession(ctx, id, status); err != nil {
			logger.WarnX("usage", "archive session %s on shutdown: %v", id, err)
		}
	}
}

// ActiveSessions returns the number of sessions not yet archived.
func (m *Module) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.active)
}

// Close releases the archive store.
func (m *Module) Close() error {
	return m.archive.Close()
}

// Analytics aggregates per-plugin usage over active and archived sessions.
func (m *Module) Analytics(ctx context.Context) (*Report, error) {
	archived, err := m.archive.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}

	m.mu.RLock()
	activeSessions := make([]*session, 0, len(m.active))
	for _, s := range m.active {
		activeSessions = append(activeSessions, s)
	}
	m.mu.RUnlock()

	summaries := make([]*SessionSummary, 0, len(archived)+len(activeSessions))
	summaries = append(summaries, archived...)
	for _, s := range activeSessions {
		sum, err := s.summary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}

	report := &Report{
		GeneratedAt:      time.Now(),
		ActiveSessions:   len(activeSessions),
		ArchivedSessions: len(archived),
	}

	byPlugin := make(map[string]*PluginStats)
	durations := make(map[string][]time.Duration)
	for _, sum := range summaries {
		for _, rec := range sum.Invocations {
			st, ok := byPlugin[rec.PluginID]
			if !ok {
				st = &PluginStats{PluginID: rec.PluginID}
				byPlugin[rec.PluginID] = st
			}
			st.Invocations++
			report.TotalInvocations++

			switch rec.Status {
			case InvocationSuccess:
				st.Successes++
				durations[rec.PluginID] = append(durations[rec.PluginID], rec.Duration)
			case InvocationFailed:
				st.Failures++
			case InvocationCancelled:
				st.Cancelled++
			case InvocationBlockedDuplicate:
				st.Blocked++
			}
		}
	}

	for id, st := range byPlugin {
		if attempts := st.Successes + st.Failures; attempts > 0 {
			st.SuccessRate = float64(st.Successes) / float64(attempts)
		}
		if ds := durations[id]; len(ds) > 0 {
			var total time.Duration
			for _, d := range ds {
				total += d
			}
			st.AvgDurationMS = float64(total) / float64(time.Millisecond) / float64(len(ds))
		}
		report.Plugins = append(report.Plugins, *st)
	}

	sort.Slice(report.Plugins, func(i, j int) bool {
		if report.Plugins[i].Invocations != report.Plugins[j].Invocations {
			return report.Plugins[i].Invocations > report.Plugins[j].Invocations
		}
		return report.Plugins[i].PluginID < report.Plugins[j].PluginID
	})
	if len(report.Plugins) > 0 {
		report.MostUsedPlugin = report.Plugins[0].PluginID
	}

	return report, nil
}
