package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/dispatch"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/pkg/errorx"
	"github.com/libreassistant/poco/pkg/logger"
)

// ModelInfo names the model serving this daemon's chats.
type ModelInfo interface {
	ModelName() string
}

// ChatHandler handles POST /v1/chat, the single user-facing turn endpoint.
//
// A turn runs the bounded dispatch loop: catalog prompt, model reply, plugin
// invocations, final message. With stream_trace the per-step events are
// relayed as SSE before the final payload.
type ChatHandler struct {
	dispatcher *dispatch.Module
	history    *history.Module
	lm         ModelInfo
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(dispatcher *dispatch.Module, hist *history.Module, lm ModelInfo) *ChatHandler {
	return &ChatHandler{dispatcher: dispatcher, history: hist, lm: lm}
}

// Chat is the main entry point for POST /v1/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind chat request"), nil)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		core.WriteResponse(c, errorx.WithCode(ErrValidation, "message must not be blank"), nil)
		return
	}

	enable := req.EnablePlugins == nil || *req.EnablePlugins
	dreq := &dispatch.Request{
		Message:   req.Message,
		NoPlugins: !enable,
	}

	ctx := c.Request.Context()
	conversationID := h.ensureConversation(ctx, &req)

	if len(req.History) > 0 {
		dreq.History = toSchemaMessages(req.History)
	} else if conversationID != "" && req.ConversationID != "" {
		stored, err := h.history.History(ctx, conversationID)
		if err != nil {
			logger.WarnX("chat", "load history for conversation %s: %v", conversationID, err)
		} else {
			dreq.History = stored
		}
	}

	h.appendTurn(ctx, conversationID, "user", req.Message)

	model := req.Model
	if model == "" {
		model = h.lm.ModelName()
	}

	if req.StreamTrace {
		h.handleStream(c, dreq, conversationID, model)
		return
	}

	res, err := h.dispatcher.Dispatch(ctx, dreq)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, chatErrCode(err), "dispatch chat turn"), nil)
		return
	}

	h.appendTurn(ctx, conversationID, "assistant", res.Text)
	core.WriteResponse(c, nil, toChatResponse(res, conversationID, model))
}

// handleStream relays dispatch trace events as SSE. Event names mirror the
// dispatch event types; the closing sentinel is the conventional [DONE].
func (h *ChatHandler) handleStream(c *gin.Context, dreq *dispatch.Request, conversationID, model string) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	w := c.Writer

	writeEvent := func(name string, data interface{}) {
		if err := sse.Encode(w, sse.Event{Event: name, Data: data}); err != nil {
			logger.WarnX("chat", "encode trace event %s: %v", name, err)
			return
		}
		w.Flush()
	}

	writeEvent("meta", gin.H{"conversation_id": conversationID, "model": model})

	sr := h.dispatcher.DispatchStream(c.Request.Context(), dreq)
	defer sr.Close()

	var final *dispatch.Result
	for {
		select {
		case <-c.Request.Context().Done():
			return
		default:
		}

		event, err := sr.Recv()
		if err != nil {
			if err == io.EOF {
				break
			}
			logger.WarnX("chat", "trace recv error (code=%d): %v", ErrStreamRecv, err)
			break
		}

		if event.Type == dispatch.EventDone && event.Result != nil {
			final = event.Result
		}
		writeEvent(string(event.Type), event)
	}

	if final != nil && final.Text != "" {
		h.appendTurn(c.Request.Context(), conversationID, "assistant", final.Text)
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	w.Flush()
}

// ensureConversation resolves the stored thread for this turn. History
// trouble never fails a chat; it degrades to a transient conversation.
func (h *ChatHandler) ensureConversation(ctx context.Context, req *ChatRequest) string {
	if !h.history.Enabled() {
		return ""
	}

	id, err := h.history.EnsureConversation(ctx, req.ConversationID, req.Message)
	if err != nil {
		logger.WarnX("chat", "ensure conversation: %v", err)
		return ""
	}

	return id
}

func (h *ChatHandler) appendTurn(ctx context.Context, conversationID, role, content string) {
	if conversationID == "" || content == "" {
		return
	}
	if err := h.history.AppendMessage(ctx, conversationID, role, content); err != nil {
		logger.WarnX("chat", "append %s turn to conversation %s: %v", role, conversationID, err)
	}
}

// toSchemaMessages converts inline request history for the dispatch loop.
func toSchemaMessages(turns []ChatTurn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch schema.RoleType(t.Role) {
		case schema.Assistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		case schema.System:
			out = append(out, schema.SystemMessage(t.Content))
		default:
			out = append(out, schema.UserMessage(t.Content))
		}
	}

	return out
}

// chatErrCode classifies a dispatch failure.
func chatErrCode(err error) int {
	switch {
	case errors.Is(err, errno.ErrBudgetExceeded):
		return ErrChatBudget
	case errors.Is(err, errno.ErrDuplicatePluginCall):
		return ErrChatDuplicate
	case errors.Is(err, errno.ErrCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return ErrChatCancelled
	case errors.Is(err, errno.ErrLMUnavailable):
		return ErrLMUnavailable
	default:
		return ErrChatDispatch
	}
}
