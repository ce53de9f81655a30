package poco

import (
	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/poco/handler/middleware"
	v1 "github.com/libreassistant/poco/internal/poco/handler/v1"
	"github.com/libreassistant/poco/internal/poco/service/dispatch"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/internal/poco/service/llm"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/internal/poco/service/usage"
)

// routerDeps holds the dependencies needed for route registration.
type routerDeps struct {
	registry   *registry.Module
	gate       *gate.Module
	supervisor *supervisor.Module
	dispatcher *dispatch.Module
	tracker    *usage.Module
	history    *history.Module
	lm         *llm.Module
	authConfig *middleware.AuthConfig
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installController(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.CORS())

	if deps.authConfig != nil {
		g.Use(middleware.BearerAuth(deps.authConfig))
	}
}

func installController(g *gin.Engine, deps *routerDeps) {
	// Handlers.
	pluginHandler := v1.NewPluginHandler(deps.registry, deps.gate, deps.supervisor)
	chatHandler := v1.NewChatHandler(deps.dispatcher, deps.history, deps.lm)
	usageHandler := v1.NewUsageHandler(deps.tracker)
	conversationHandler := v1.NewConversationHandler(deps.history)

	// --- /v1 route group ---
	apiV1 := g.Group("/v1")
	{
		// Plugin management.
		apiV1.GET("/plugins", pluginHandler.List)
		apiV1.POST("/plugins/rescan", pluginHandler.Rescan)
		apiV1.GET("/plugins/usage", usageHandler.Report)
		apiV1.GET("/plugins/:id/status", pluginHandler.Status)
		apiV1.POST("/plugins/:id/start", pluginHandler.Start)
		apiV1.POST("/plugins/:id/stop", pluginHandler.Stop)
		apiV1.POST("/plugins/:id/restart", pluginHandler.Restart)
		apiV1.POST("/plugins/:id/approve", pluginHandler.Approve)

		// Chat.
		apiV1.POST("/chat", chatHandler.Chat)

		// Stored conversations.
		apiV1.GET("/conversations", conversationHandler.List)
		apiV1.GET("/conversations/:id", conversationHandler.Get)
	}
}
