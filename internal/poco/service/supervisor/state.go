package supervisor

// State is the lifecycle state of a managed plugin instance.
type State int

const (
	// StateDiscovered means the manifest is loaded but the declared
	// permissions are not approved yet.
	StateDiscovered State = iota
	// StateApproved means the plugin may be started.
	StateApproved
	// StateStarting means the process is spawned and the readiness probe is
	// in flight.
	StateStarting
	// StateRunning means the readiness probe succeeded and the process is
	// monitored.
	StateRunning
	// StateStopping means a stop was requested and the process is being
	// shut down.
	StateStopping
	// StateStopped means the process exited after a requested stop.
	StateStopped
	// StateFailed means the start failed or the process exited on its own.
	// A failed instance must be cleared before it can start again.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateApproved:
		return "approved"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of one plugin instance.
type Status struct {
	ID            string  `json:"id"`
	State         string  `json:"state"`
	Port          int     `json:"port"`
	PID           int     `json:"pid,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Restarts      int     `json:"restarts"`
	Crashes       int     `json:"crashes"`
	LastError     string  `json:"last_error,omitempty"`
}
