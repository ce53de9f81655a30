package usage

import (
	"time"
)

// InvocationStatus is the outcome of one recorded plugin invocation.
type InvocationStatus string

const (
	// InvocationPending is a call that has been dispatched but not settled.
	InvocationPending InvocationStatus = "pending"
	// InvocationSuccess is a call the plugin answered successfully.
	InvocationSuccess InvocationStatus = "success"
	// InvocationFailed is a call that ended in any error.
	InvocationFailed InvocationStatus = "failed"
	// InvocationCancelled is a call aborted by the caller.
	InvocationCancelled InvocationStatus = "cancelled"
	// InvocationBlockedDuplicate is a call refused for repeating the
	// immediately previous one.
	InvocationBlockedDuplicate InvocationStatus = "blocked_duplicate"
)

// SessionStatus is the final disposition of a dispatch session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
	SessionFailed    SessionStatus = "failed"
)

// InvocationRecord is one plugin call inside a session. Records are
// append-only; indices stay contiguous from zero in recording order.
type InvocationRecord struct {
	Index       int              `json:"index"`
	PluginID    string           `json:"plugin_id"`
	Operation   string           `json:"operation"`
	Fingerprint string           `json:"fingerprint"`
	Reason      string           `json:"reason,omitempty"`
	Status      InvocationStatus `json:"status"`
	Error       string           `json:"error,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	Duration    time.Duration    `json:"duration"`
}

// SessionSummary is a detached copy of one session's state. Mutating it
// never touches the tracked session.
type SessionSummary struct {
	ID          string             `json:"id"`
	Status      SessionStatus      `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	EndedAt     time.Time          `json:"ended_at"`
	Invocations []InvocationRecord `json:"invocations"`
}

// PluginStats aggregates invocations of one plugin.
type PluginStats struct {
	PluginID      string  `json:"plugin_id"`
	Invocations   int     `json:"invocations"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	Cancelled     int     `json:"cancelled"`
	Blocked       int     `json:"blocked_duplicates"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Report is the usage analytics view over active and archived sessions.
type Report struct {
	GeneratedAt      time.Time     `json:"generated_at"`
	ActiveSessions   int           `json:"active_sessions"`
	ArchivedSessions int           `json:"archived_sessions"`
	TotalInvocations int           `json:"total_invocations"`
	MostUsedPlugin   string        `json:"most_used_plugin,omitempty"`
	Plugins          []PluginStats `json:"plugins"`
}
