package usage

import (
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
)

// session is one live dispatch session. All access goes through mu so that
// concurrent sessions never contend with each other.
type session struct {
	mu      sync.Mutex
	id      string
	status  SessionStatus
	started time.Time
	ended   time.Time
	records []InvocationRecord
}

func newSession(id string) *session {
	return &session{
		id:      id,
		status:  SessionActive,
		started: time.Now(),
	}
}

// record appends rec and returns its index. Indices are assigned here and
// only here, so they stay contiguous.
func (s *session) record(rec InvocationRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Index = len(s.records)
	if rec.Status == "" {
		rec.Status = InvocationPending
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	s.records = append(s.records, rec)

	return rec.Index
}

// update settles the outcome of the record at index.
func (s *session) update(index int, status InvocationStatus, errMsg string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("invocation index %d out of range [0, %d)", index, len(s.records))
	}

	s.records[index].Status = status
	s.records[index].Error = errMsg
	s.records[index].Duration = duration

	return nil
}

// lastFingerprint returns the fingerprint of the most recent record, or ""
// when the session has none.
func (s *session) lastFingerprint() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == 0 {
		return ""
	}

	return s.records[len(s.records)-1].Fingerprint
}

// close marks the session finished.
func (s *session) close(status SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
	s.ended = time.Now()
}

// summary returns a detached deep copy of the session.
func (s *session) summary() (*SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &SessionSummary{
		ID:        s.id,
		Status:    s.status,
		StartedAt: s.started,
		EndedAt:   s.ended,
	}
	if err := copier.CopyWithOption(&out.Invocations, s.records, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy session %s records: %w", s.id, err)
	}

	return out, nil
}
