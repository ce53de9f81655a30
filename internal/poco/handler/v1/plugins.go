package v1

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/pkg/errorx"
)

// PluginHandler handles the plugin management REST API endpoints.
type PluginHandler struct {
	registry   *registry.Module
	gate       *gate.Module
	supervisor *supervisor.Module
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(reg *registry.Module, g *gate.Module, sup *supervisor.Module) *PluginHandler {
	return &PluginHandler{registry: reg, gate: g, supervisor: sup}
}

// List handles GET /v1/plugins.
func (h *PluginHandler) List(c *gin.Context) {
	descriptors := h.registry.List()
	plugins := make([]PluginInfo, 0, len(descriptors))
	for _, d := range descriptors {
		st, err := h.supervisor.Status(d.ID)
		if err != nil {
			// Registry and supervisor disagree mid-rescan; skip this one.
			continue
		}
		plugins = append(plugins, h.info(d, st))
	}

	core.WriteResponse(c, nil, PluginListResponse{
		Plugins:   plugins,
		Rejected:  h.registry.Failures(),
		ScannedAt: FormatTime(h.registry.ScannedAt()),
	})
}

// Status handles GET /v1/plugins/:id/status.
func (h *PluginHandler) Status(c *gin.Context) {
	id := c.Param("id")
	d, err := h.registry.Get(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "plugin %q not found", id), nil)
		return
	}

	st, err := h.supervisor.Status(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "plugin %q not found", id), nil)
		return
	}

	core.WriteResponse(c, nil, h.info(d, st))
}

// Start handles POST /v1/plugins/:id/start. The optional body carries
// per-start option overrides.
func (h *PluginHandler) Start(c *gin.Context) {
	id := c.Param("id")

	var req StartPluginRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind start request for plugin %q", id), nil)
			return
		}
	}

	if err := h.supervisor.StartWith(c.Request.Context(), id, req.Options); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, startErrCode(err), "start plugin %q", id), nil)
		return
	}

	h.writeStatus(c, id)
}

// Stop handles POST /v1/plugins/:id/stop.
func (h *PluginHandler) Stop(c *gin.Context) {
	id := c.Param("id")
	if err := h.supervisor.Stop(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, stopErrCode(err), "stop plugin %q", id), nil)
		return
	}

	h.writeStatus(c, id)
}

// Restart handles POST /v1/plugins/:id/restart.
func (h *PluginHandler) Restart(c *gin.Context) {
	id := c.Param("id")
	if err := h.supervisor.Restart(c.Request.Context(), id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, startErrCode(err), "restart plugin %q", id), nil)
		return
	}

	h.writeStatus(c, id)
}

// Approve handles POST /v1/plugins/:id/approve. It grants every permission
// the manifest declares and moves the instance out of the discovered state.
func (h *PluginHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	d, err := h.registry.Get(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "plugin %q not found", id), nil)
		return
	}

	if len(d.Permissions) > 0 {
		if err := h.gate.Grant(d.ID, d.Permissions); err != nil {
			core.WriteResponse(c, errorx.WrapC(err, ErrPluginApprove, "grant permissions for plugin %q", id), nil)
			return
		}
	}
	if err := h.supervisor.MarkApproved(id); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginApprove, "approve plugin %q", id), nil)
		return
	}

	h.writeStatus(c, id)
}

// Rescan handles POST /v1/plugins/rescan. It reloads manifests from disk and
// syncs the supervisor's instance table.
func (h *PluginHandler) Rescan(c *gin.Context) {
	if err := h.registry.Rescan(); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginRescan, "rescan plugins root %q", h.registry.Root()), nil)
		return
	}
	h.supervisor.Sync()

	core.WriteResponse(c, nil, gin.H{
		"plugins":  h.registry.Len(),
		"rejected": len(h.registry.Failures()),
	})
}

func (h *PluginHandler) info(d *registry.PluginDescriptor, st supervisor.Status) PluginInfo {
	return toPluginInfo(d, st, h.gate.Approved(d.ID), h.gate.Missing(d.ID, d.Permissions))
}

// writeStatus answers a mutating plugin call with the fresh status view.
func (h *PluginHandler) writeStatus(c *gin.Context, id string) {
	d, err := h.registry.Get(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "plugin %q not found", id), nil)
		return
	}
	st, err := h.supervisor.Status(id)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPluginNotFound, "plugin %q not found", id), nil)
		return
	}

	core.WriteResponse(c, nil, h.info(d, st))
}

// startErrCode classifies a supervisor start or restart failure.
func startErrCode(err error) int {
	switch {
	case errors.Is(err, errno.ErrPluginNotFound):
		return ErrPluginNotFound
	case errors.Is(err, errno.ErrPermissionDenied), errors.Is(err, errno.ErrNotApproved):
		return ErrPluginNotApproved
	case errors.Is(err, errno.ErrAlreadyRunning),
		errors.Is(err, errno.ErrPortInUse),
		errors.Is(err, errno.ErrStartPrecondition):
		return ErrPluginConflict
	case errors.Is(err, errno.ErrReadinessTimeout), errors.Is(err, errno.ErrCrashDetected):
		return ErrPluginNotReady
	default:
		return ErrPluginStart
	}
}

// stopErrCode classifies a supervisor stop failure. Stopping an idle plugin
// is a no-op in the supervisor, so unknown ids are the common case here.
func stopErrCode(err error) int {
	if errors.Is(err, errno.ErrPluginNotFound) {
		return ErrPluginNotFound
	}
	return ErrPluginStop
}
