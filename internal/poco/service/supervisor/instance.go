package supervisor

import (
	"os/exec"
	"sync"
	"time"

	"github.com/libreassistant/poco/internal/poco/service/registry"
)

// instance tracks one plugin's process and lifecycle state. opMu serializes
// start, stop and restart per plugin; mu guards the mutable fields.
type instance struct {
	opMu sync.Mutex

	mu        sync.RWMutex
	desc      *registry.PluginDescriptor
	state     State
	cmd       *exec.Cmd
	done      chan struct{}
	exitErr   error
	startedAt time.Time
	restarts  int
	crashes   int
	lastError string
}

func newInstance(d *registry.PluginDescriptor, approved bool) *instance {
	st := StateDiscovered
	if approved {
		st = StateApproved
	}

	return &instance{desc: d, state: st}
}

func (i *instance) currentState() State {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.state
}

func (i *instance) descriptor() *registry.PluginDescriptor {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.desc
}

// fail moves the instance to failed and records the reason.
func (i *instance) fail(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.state = StateFailed
	i.cmd = nil
	if err != nil {
		i.lastError = err.Error()
	}
}

func (i *instance) snapshot() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s := Status{
		ID:        i.desc.ID,
		State:     i.state.String(),
		Port:      i.desc.Port,
		Restarts:  i.restarts,
		Crashes:   i.crashes,
		LastError: i.lastError,
	}
	if i.state == StateRunning || i.state == StateStarting {
		if i.cmd != nil && i.cmd.Process != nil {
			s.PID = i.cmd.Process.Pid
		}
		s.UptimeSeconds = time.Since(i.startedAt).Seconds()
	}

	return s
}
