package v1

import (
	"net/http"

	"github.com/libreassistant/poco/pkg/errorx"
)

// Poco handler error codes.
// Code format: 2XXYYZ
//   - 2:  module prefix (poco handler)
//   - XX: resource group (00=common, 01=chat, 02=plugin, 03=usage, 04=conversation)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (200xxx).
	ErrBind       = 200001
	ErrValidation = 200002

	// Chat errors (2001xx).
	ErrChatDispatch  = 200101
	ErrChatBudget    = 200102
	ErrChatDuplicate = 200103
	ErrChatCancelled = 200104
	ErrLMUnavailable = 200105
	ErrStreamRecv    = 200106

	// Plugin errors (2002xx).
	ErrPluginNotFound    = 200201
	ErrPluginStart       = 200202
	ErrPluginStop        = 200203
	ErrPluginNotApproved = 200204
	ErrPluginConflict    = 200205
	ErrPluginNotReady    = 200206
	ErrPluginRescan      = 200207
	ErrPluginApprove     = 200208

	// Usage errors (2003xx).
	ErrUsageReport = 200301

	// Conversation errors (2004xx).
	ErrConversationNotFound = 200401
	ErrHistoryDisabled      = 200402
	ErrConversationList     = 200403
)

func init() {
	// Common.
	errorx.MustRegister(newCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(newCoder(ErrValidation, http.StatusBadRequest, "Request validation failed"))

	// Chat.
	errorx.MustRegister(newCoder(ErrChatDispatch, http.StatusInternalServerError, "Chat dispatch failed"))
	errorx.MustRegister(newCoder(ErrChatBudget, http.StatusUnprocessableEntity, "Plugin step budget exhausted without a final reply"))
	errorx.MustRegister(newCoder(ErrChatDuplicate, http.StatusConflict, "Model repeated an identical plugin call"))
	errorx.MustRegister(newCoder(ErrChatCancelled, http.StatusRequestTimeout, "Chat turn cancelled"))
	errorx.MustRegister(newCoder(ErrLMUnavailable, http.StatusBadGateway, "Language model unavailable"))
	errorx.MustRegister(newCoder(ErrStreamRecv, http.StatusInternalServerError, "Trace stream receive error"))

	// Plugin.
	errorx.MustRegister(newCoder(ErrPluginNotFound, http.StatusNotFound, "Plugin not found"))
	errorx.MustRegister(newCoder(ErrPluginStart, http.StatusInternalServerError, "Failed to start plugin"))
	errorx.MustRegister(newCoder(ErrPluginStop, http.StatusInternalServerError, "Failed to stop plugin"))
	errorx.MustRegister(newCoder(ErrPluginNotApproved, http.StatusForbidden, "Plugin permissions not approved"))
	errorx.MustRegister(newCoder(ErrPluginConflict, http.StatusConflict, "Plugin state conflict"))
	errorx.MustRegister(newCoder(ErrPluginNotReady, http.StatusGatewayTimeout, "Plugin did not become ready"))
	errorx.MustRegister(newCoder(ErrPluginRescan, http.StatusInternalServerError, "Plugin rescan failed"))
	errorx.MustRegister(newCoder(ErrPluginApprove, http.StatusInternalServerError, "Failed to approve plugin permissions"))

	// Usage.
	errorx.MustRegister(newCoder(ErrUsageReport, http.StatusInternalServerError, "Failed to build usage report"))

	// Conversation.
	errorx.MustRegister(newCoder(ErrConversationNotFound, http.StatusNotFound, "Conversation not found"))
	errorx.MustRegister(newCoder(ErrHistoryDisabled, http.StatusNotImplemented, "Chat history is not enabled"))
	errorx.MustRegister(newCoder(ErrConversationList, http.StatusInternalServerError, "Failed to list conversations"))
}

type coder struct {
	code int
	http int
	msg  string
}

func newCoder(code, httpStatus int, msg string) *coder {
	return &coder{code: code, http: httpStatus, msg: msg}
}

func (c *coder) Code() int         { return c.code }
func (c *coder) HTTPStatus() int   { return c.http }
func (c *coder) String() string    { return c.msg }
func (c *coder) Reference() string { return "" }
