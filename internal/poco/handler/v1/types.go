package v1

import (
	"time"

	"github.com/libreassistant/poco/internal/poco/service/dispatch"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/internal/poco/service/usage"
)

// --- Chat API ---

// ChatRequest is the request body for POST /v1/chat.
type ChatRequest struct {
	// Message is the user's prompt for this turn.
	Message string `json:"message" binding:"required"`

	// Model is advisory; the daemon serves every turn with its configured
	// provider and echoes the effective model back.
	Model string `json:"model,omitempty"`

	// History is the prior conversation supplied inline. When empty and
	// ConversationID names a stored thread, the stored turns are used.
	History []ChatTurn `json:"history,omitempty"`

	// ConversationID continues a stored conversation. Empty starts a new
	// one when history persistence is enabled.
	ConversationID string `json:"conversation_id,omitempty"`

	// EnablePlugins gates plugin use for this turn. Nil means enabled.
	EnablePlugins *bool `json:"enable_plugins,omitempty"`

	// StreamTrace upgrades the response to SSE step events.
	StreamTrace bool `json:"stream_trace,omitempty"`
}

// ChatTurn is a single prior message in the chat request.
type ChatTurn struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content"`
}

// ChatResponse is the non-streaming response for POST /v1/chat.
type ChatResponse struct {
	SessionID      string                   `json:"session_id"`
	ConversationID string                   `json:"conversation_id,omitempty"`
	Model          string                   `json:"model"`
	Reply          string                   `json:"reply"`
	Markdown       bool                     `json:"markdown"`
	NonCompliant   bool                     `json:"non_compliant,omitempty"`
	Steps          int                      `json:"steps"`
	Invocations    []usage.InvocationRecord `json:"invocations"`
}

func toChatResponse(res *dispatch.Result, conversationID, model string) ChatResponse {
	return ChatResponse{
		SessionID:      res.SessionID,
		ConversationID: conversationID,
		Model:          model,
		Reply:          res.Text,
		Markdown:       res.Markdown,
		NonCompliant:   res.NonCompliant,
		Steps:          res.Steps,
		Invocations:    res.Invocations,
	}
}

// --- Plugin API ---

// StartPluginRequest is the optional request body for POST /v1/plugins/:id/start.
type StartPluginRequest struct {
	// Options are per-start overrides for the manifest's declared options.
	Options map[string]string `json:"options,omitempty"`
}

// PluginInfo merges a plugin's manifest descriptor with its runtime and
// permission state.
type PluginInfo struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Version     string                `json:"version"`
	Description string                `json:"description,omitempty"`
	Author      string                `json:"author,omitempty"`
	Port        int                   `json:"port"`
	Permissions []registry.Capability `json:"permissions,omitempty"`

	State         string  `json:"state"`
	PID           int     `json:"pid,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
	Restarts      int     `json:"restarts,omitempty"`
	Crashes       int     `json:"crashes,omitempty"`
	LastError     string  `json:"last_error,omitempty"`

	Approved []registry.Capability `json:"approved,omitempty"`
	Missing  []registry.Capability `json:"missing,omitempty"`
}

// PluginListResponse is the response for GET /v1/plugins.
type PluginListResponse struct {
	Plugins   []PluginInfo      `json:"plugins"`
	Rejected  map[string]string `json:"rejected,omitempty"`
	ScannedAt string            `json:"scanned_at"`
}

func toPluginInfo(d *registry.PluginDescriptor, st supervisor.Status, approved, missing []registry.Capability) PluginInfo {
	return PluginInfo{
		ID:            d.ID,
		Name:          d.Name,
		Version:       d.Version,
		Description:   d.Description,
		Author:        d.Author,
		Port:          d.Port,
		Permissions:   d.Permissions,
		State:         st.State,
		PID:           st.PID,
		UptimeSeconds: st.UptimeSeconds,
		Restarts:      st.Restarts,
		Crashes:       st.Crashes,
		LastError:     st.LastError,
		Approved:      approved,
		Missing:       missing,
	}
}

// --- Conversation API ---

// ConversationResponse is one stored chat thread.
type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Messages  int    `json:"messages"`
}

// ConversationDetailResponse is one stored chat thread with its turns.
type ConversationDetailResponse struct {
	ConversationResponse
	Turns []ConversationTurn `json:"turns"`
}

// ConversationTurn is one stored chat message.
type ConversationTurn struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toConversationResponse(c *history.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: FormatTime(c.CreatedAt),
		UpdatedAt: FormatTime(c.UpdatedAt),
		Messages:  c.Messages,
	}
}

// --- Common ---

const timeFormat = time.RFC3339

// FormatTime formats a time value for API responses.
func FormatTime(t time.Time) string {
	return t.Format(timeFormat)
}
