package dispatch

import (
	"github.com/cloudwego/eino/schema"

	"github.com/libreassistant/poco/internal/poco/service/usage"
)

// Request is the input to one dispatch run.
type Request struct {
	// Message is the user input for this turn.
	Message string

	// History carries prior conversation turns, oldest first. Optional.
	History []*schema.Message

	// NoPlugins hides every plugin from this turn: the model sees an empty
	// catalog and any invoke it attempts anyway is answered with the
	// unavailable note.
	NoPlugins bool
}

// Result is the user-facing outcome of one dispatch run.
type Result struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Markdown  bool   `json:"markdown"`

	// NonCompliant marks a reply the model never expressed in the response
	// schema; Text then carries the raw model output.
	NonCompliant bool `json:"non_compliant,omitempty"`

	Steps       int                      `json:"steps"`
	Invocations []usage.InvocationRecord `json:"invocations"`
}

// EventType identifies one trace event kind.
type EventType string

const (
	// EventStep opens one loop iteration.
	EventStep EventType = "step"
	// EventInvoke announces an outbound plugin call.
	EventInvoke EventType = "invoke"
	// EventResult settles the preceding invoke.
	EventResult EventType = "result"
	// EventDone closes the run, carrying the result or the error.
	EventDone EventType = "done"
)

// Event is one entry on a dispatch trace stream.
type Event struct {
	Type      EventType `json:"type"`
	Step      int       `json:"step,omitempty"`
	PluginID  string    `json:"plugin_id,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Result    *Result   `json:"result,omitempty"`
}
