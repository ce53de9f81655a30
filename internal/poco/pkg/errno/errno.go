// Package errno defines the sentinel errors of the orchestration core.
// Callers classify failures with errors.Is.
package errno

import (
	"errors"
)

var (
	// Registry.
	ErrManifestInvalid   = errors.New("manifest invalid")
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrPluginsRootAbsent = errors.New("plugins root missing")

	// Permission gate.
	ErrPermissionDenied = errors.New("permission denied")

	// Supervisor.
	ErrPortInUse            = errors.New("port in use")
	ErrReadinessTimeout     = errors.New("readiness timeout")
	ErrCrashDetected        = errors.New("crash detected")
	ErrAlreadyRunning       = errors.New("plugin already running")
	ErrNotApproved          = errors.New("plugin not approved")
	ErrStartPrecondition    = errors.New("start precondition failed")
	ErrTooManyStartAttempts = errors.New("too many start attempts")

	// Plugin client.
	ErrPluginNotRunning  = errors.New("plugin not running")
	ErrInvocationTimeout = errors.New("invocation timeout")
	ErrTransport         = errors.New("plugin transport error")
	ErrProtocol          = errors.New("plugin protocol error")
	ErrPluginFailed      = errors.New("plugin reported failure")
	ErrResponseTooLarge  = errors.New("plugin response too large")

	// Protocol codec.
	ErrProtocolNonCompliant = errors.New("response not schema compliant")

	// Dispatcher.
	ErrDuplicatePluginCall = errors.New("duplicate plugin call")
	ErrBudgetExceeded      = errors.New("step budget exceeded")
	ErrCancelled           = errors.New("dispatch cancelled")

	// LM transport.
	ErrLMUnavailable = errors.New("language model unavailable")

	// Usage tracker.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already archived")

	// Chat history.
	ErrConversationNotFound = errors.New("conversation not found")
)
