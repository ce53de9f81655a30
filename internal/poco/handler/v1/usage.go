package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/pkg/errorx"
)

// UsageHandler handles GET /v1/plugins/usage.
type UsageHandler struct {
	tracker *usage.Module
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(tracker *usage.Module) *UsageHandler {
	return &UsageHandler{tracker: tracker}
}

// Report returns the analytics view over active and archived sessions.
func (h *UsageHandler) Report(c *gin.Context) {
	report, err := h.tracker.Analytics(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrUsageReport, "build usage report"), nil)
		return
	}

	core.WriteResponse(c, nil, report)
}
