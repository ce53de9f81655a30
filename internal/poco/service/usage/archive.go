package usage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jinzhu/copier"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
)

// ArchiveStore persists summaries of finished sessions.
type ArchiveStore interface {
	Put(ctx context.Context, s *SessionSummary) error
	Get(ctx context.Context, id string) (*SessionSummary, error)
	List(ctx context.Context) ([]*SessionSummary, error)
	// Trim drops the oldest archived sessions until at most max remain.
	Trim(ctx context.Context, max int) error
	Close() error
}

// MemoryArchive is the default ArchiveStore, keeping summaries in memory.
type MemoryArchive struct {
	mu       sync.RWMutex
	sessions map[string]*SessionSummary
	order    []string
}

var _ ArchiveStore = (*MemoryArchive)(nil)

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		sessions: make(map[string]*SessionSummary),
	}
}

func (a *MemoryArchive) Put(_ context.Context, s *SessionSummary) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.sessions[s.ID]; !ok {
		a.order = append(a.order, s.ID)
	}
	a.sessions[s.ID] = s

	return nil
}

func (a *MemoryArchive) Get(_ context.Context, id string) (*SessionSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrSessionNotFound, id)
	}

	out := &SessionSummary{}
	if err := copier.CopyWithOption(out, s, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy archived session %s: %w", id, err)
	}

	return out, nil
}

func (a *MemoryArchive) List(_ context.Context) ([]*SessionSummary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*SessionSummary, 0, len(a.order))
	for _, id := range a.order {
		cp := &SessionSummary{}
		if err := copier.CopyWithOption(cp, a.sessions[id], copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("copy archived session %s: %w", id, err)
		}
		out = append(out, cp)
	}

	return out, nil
}

func (a *MemoryArchive) Trim(_ context.Context, max int) error {
	if max < 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for len(a.order) > max {
		oldest := a.oldestLocked()
		delete(a.sessions, oldest)
		for i, id := range a.order {
			if id == oldest {
				a.order = append(a.order[:i], a.order[i+1:]...)
				break
			}
		}
	}

	return nil
}

// oldestLocked picks the archived session with the earliest end time.
// Callers hold a.mu.
func (a *MemoryArchive) oldestLocked() string {
	ids := make([]string, len(a.order))
	copy(ids, a.order)
	sort.Slice(ids, func(i, j int) bool {
		return a.sessions[ids[i]].EndedAt.Before(a.sessions[ids[j]].EndedAt)
	})

	return ids[0]
}

func (a *MemoryArchive) Close() error {
	return nil
}
