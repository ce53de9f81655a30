package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/version"
)

// GenericAPIServer contains state for the poco api server: a gin.Engine plus
// the http.Server that runs it.
type GenericAPIServer struct {
	*gin.Engine

	address         string
	healthz         bool
	enableProfiling bool

	insecureServer *http.Server
}

func initGenericAPIServer(s *GenericAPIServer) {
	s.Setup()
	s.InstallAPIs()
}

// Setup does some setup work for gin engine.
func (s *GenericAPIServer) Setup() {
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		logger.Debug("[Server] %-6s %-25s --> %s (%d handlers)", httpMethod, absolutePath, handlerName, nuHandlers)
	}
}

// InstallAPIs installs the generic apis: healthz, version, pprof.
func (s *GenericAPIServer) InstallAPIs() {
	if s.healthz {
		s.GET("/healthz", func(c *gin.Context) {
			core.WriteResponse(c, nil, map[string]string{"status": "ok"})
		})
	}

	s.GET("/version", func(c *gin.Context) {
		core.WriteResponse(c, nil, version.Get())
	})

	if s.enableProfiling {
		pprof.Register(s.Engine)
	}
}

// Address returns the serving address.
func (s *GenericAPIServer) Address() string {
	return s.address
}

// Run spawns the http server. It blocks until the server is stopped via
// Close or fails.
func (s *GenericAPIServer) Run() error {
	s.insecureServer = &http.Server{
		Addr:    s.address,
		Handler: s,
	}

	logger.Info("[Server] start to listening on http address: %s", s.address)

	if err := s.insecureServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("[Server] server on %s stopped", s.address)

	return nil
}

// Close gracefully shuts down the server.
func (s *GenericAPIServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.insecureServer != nil {
		if err := s.insecureServer.Shutdown(ctx); err != nil {
			logger.Warn("[Server] shutdown insecure server failed: %s", err.Error())
		}
	}
}
