package api

// PluginInfo is one plugin as reported by GET /v1/plugins.
type PluginInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author,omitempty"`
	Port        int      `json:"port"`
	Permissions []string `json:"permissions,omitempty"`

	State         string  `json:"state"`
	PID           int     `json:"pid,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
	Restarts      int     `json:"restarts,omitempty"`
	Crashes       int     `json:"crashes,omitempty"`
	LastError     string  `json:"last_error,omitempty"`

	Approved []string `json:"approved,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

// PluginList is the response of GET /v1/plugins.
type PluginList struct {
	Plugins   []PluginInfo      `json:"plugins"`
	Rejected  map[string]string `json:"rejected,omitempty"`
	ScannedAt string            `json:"scanned_at"`
}

// ChatRequest is the request body of POST /v1/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	Model          string `json:"model,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	EnablePlugins  *bool  `json:"enable_plugins,omitempty"`
}

// Invocation is one plugin call recorded during a chat turn.
type Invocation struct {
	Index    int    `json:"index"`
	PluginID string `json:"plugin_id"`
	Reason   string `json:"reason,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration int64  `json:"duration"`
}

// ChatResponse is the response of POST /v1/chat.
type ChatResponse struct {
	SessionID      string       `json:"session_id"`
	ConversationID string       `json:"conversation_id,omitempty"`
	Model          string       `json:"model"`
	Reply          string       `json:"reply"`
	Markdown       bool         `json:"markdown"`
	NonCompliant   bool         `json:"non_compliant,omitempty"`
	Steps          int          `json:"steps"`
	Invocations    []Invocation `json:"invocations"`
}

// PluginStats aggregates the recorded invocations of one plugin.
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

// UsageReport is the response of GET /v1/plugins/usage.
type UsageReport struct {
	GeneratedAt      string        `json:"generated_at"`
	ActiveSessions   int           `json:"active_sessions"`
	ArchivedSessions int           `json:"archived_sessions"`
	TotalInvocations int           `json:"total_invocations"`
	MostUsedPlugin   string        `json:"most_used_plugin,omitempty"`
	Plugins          []PluginStats `json:"plugins"`
}

// VersionInfo is the response of GET /version.
type VersionInfo struct {
	GitVersion string `json:"gitVersion"`
	GitCommit  string `json:"gitCommit"`
	BuildDate  string `json:"buildDate"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
}
