package v1

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/pkg/errorx"
)

// ConversationHandler handles the stored chat thread endpoints.
type ConversationHandler struct {
	history *history.Module
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(hist *history.Module) *ConversationHandler {
	return &ConversationHandler{history: hist}
}

// List handles GET /v1/conversations.
func (h *ConversationHandler) List(c *gin.Context) {
	if !h.history.Enabled() {
		core.WriteResponse(c, errorx.WithCode(ErrHistoryDisabled, "chat history is not enabled"), nil)
		return
	}

	conversations, err := h.history.Conversations(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrConversationList, "list conversations"), nil)
		return
	}

	resp := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		resp = append(resp, toConversationResponse(conv))
	}
	core.WriteResponse(c, nil, gin.H{"data": resp})
}

// Get handles GET /v1/conversations/:id.
func (h *ConversationHandler) Get(c *gin.Context) {
	if !h.history.Enabled() {
		core.WriteResponse(c, errorx.WithCode(ErrHistoryDisabled, "chat history is not enabled"), nil)
		return
	}

	id := c.Param("id")
	conv, err := h.history.Conversation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, errno.ErrConversationNotFound) {
			core.WriteResponse(c, errorx.WrapC(err, ErrConversationNotFound, "conversation %q not found", id), nil)
			return
		}
		core.WriteResponse(c, errorx.WrapC(err, ErrConversationList, "load conversation %q", id), nil)
		return
	}

	msgs, err := h.history.Messages(c.Request.Context(), id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrConversationList, "load conversation %q turns", id), nil)
		return
	}

	turns := make([]ConversationTurn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, ConversationTurn{
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: FormatTime(m.CreatedAt),
		})
	}

	core.WriteResponse(c, nil, ConversationDetailResponse{
		ConversationResponse: toConversationResponse(conv),
		Turns:                turns,
	})
}
