package protocol

// Action names the two reply shapes the model is instructed to produce.
type Action string

const (
	// ActionMessage is a final user-facing answer.
	ActionMessage Action = "message"
	// ActionPluginInvoke asks the orchestrator to call a plugin.
	ActionPluginInvoke Action = "plugin_invoke"
)

// MessageContent carries a final answer.
type MessageContent struct {
	Text     string `json:"text"`
	Markdown bool   `json:"markdown,omitempty"`
}

// InvokeContent carries a plugin invocation request.
type InvokeContent struct {
	Plugin string                 `json:"plugin"`
	Input  map[string]interface{} `json:"input"`
	Reason string                 `json:"reason,omitempty"`
}

// Decision is the parsed outcome of one model reply. Exactly one of Message
// and Invoke is set, matching Action.
type Decision struct {
	Action  Action
	Message *MessageContent
	Invoke  *InvokeContent

	// NonCompliant marks a reply that defeated every parse strategy. The
	// raw text is then surfaced as a message rather than dropped.
	NonCompliant bool

	// Raw is the unmodified model reply, kept for traces.
	Raw string
}

// envelope is the wire shape of a compliant reply.
type envelope struct {
	Action  string                 `json:"action"`
	Content map[string]interface{} `json:"content"`
}
