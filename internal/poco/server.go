package poco

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/libreassistant/poco/internal/poco/config"
	"github.com/libreassistant/poco/internal/poco/handler/middleware"
	"github.com/libreassistant/poco/internal/poco/service/dispatch"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/internal/poco/service/history/sqlite"
	"github.com/libreassistant/poco/internal/poco/service/lifecycle"
	"github.com/libreassistant/poco/internal/poco/service/llm"
	"github.com/libreassistant/poco/internal/poco/service/pluginapi"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/internal/poco/service/usage/boltdb"
	genericserver "github.com/libreassistant/poco/internal/pkg/server"
	"github.com/libreassistant/poco/pkg/http/shutdown"
	"github.com/libreassistant/poco/pkg/http/shutdown/posixsignal"
	"github.com/libreassistant/poco/pkg/logger"
)

// shutdownTimeout bounds the whole teardown: plugin stops, archive flush
// and store closes together.
const shutdownTimeout = 30 * time.Second

type apiServer struct {
	gs               *shutdown.GracefulShutdown
	gRPCAPIServer    *genericserver.GRPCAPIServer
	genericAPIServer *genericserver.GenericAPIServer

	registryModule   *registry.Module
	gateModule       *gate.Module
	supervisorModule *supervisor.Module
	clientModule     *pluginapi.Module
	llmModule        *llm.Module
	trackerModule    *usage.Module
	historyModule    *history.Module
	dispatchModule   *dispatch.Module
	lifecycleModule  *lifecycle.Module

	authConfig  *middleware.AuthConfig
	watchCancel context.CancelFunc
}

type preparedAPIServer struct {
	*apiServer
}

// ExtraConfig defines extra configuration for the poco server.
type ExtraConfig struct {
	Addr       string
	MaxMsgSize int
}

type completedExtraConfig struct {
	*ExtraConfig
}

// Complete fills in any fields not set that are required to have valid data
// and can be derived from other fields.
func (c *ExtraConfig) complete() *completedExtraConfig {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:11751"
	}

	return &completedExtraConfig{c}
}

// New creates the gRPC control surface with the given configuration.
func (c *completedExtraConfig) New() (*genericserver.GRPCAPIServer, error) {
	opts := []grpc.ServerOption{grpc.MaxRecvMsgSize(c.MaxMsgSize)}
	grpcServer := grpc.NewServer(opts...)

	reflection.Register(grpcServer)

	return genericserver.NewGRPCAPIServer(grpcServer, c.Addr), nil
}

func createAPIServer(cfg *config.Config) (*apiServer, error) {
	gs := shutdown.New()
	gs.AddShutdownManager(posixsignal.NewPosixSignalManager())

	genericConfig, err := buildGenericConfig(cfg)
	if err != nil {
		return nil, err
	}

	extraConfig, err := buildExtraConfig(cfg)
	if err != nil {
		return nil, err
	}

	genericServer, err := genericConfig.Complete().New()
	if err != nil {
		return nil, err
	}

	extraServer, err := extraConfig.complete().New()
	if err != nil {
		return nil, err
	}

	registryModule, err := (&registry.Config{
		Root: cfg.PluginsOptions.Root,
	}).Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize plugin registry: %w", err)
	}

	gateModule, err := (&gate.Config{
		AutoApprove: cfg.PluginsOptions.AutoApprove,
		GrantsFile:  cfg.PluginsOptions.GrantsFile,
	}).Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize permission gate: %w", err)
	}

	supervisorModule, err := (&supervisor.Config{
		Registry:          registryModule,
		Gate:              gateModule,
		ReadinessDeadline: cfg.PluginsOptions.ReadinessDeadline,
		StopDeadline:      cfg.PluginsOptions.StopDeadline,
	}).Complete().New(context.Background())
	if err != nil {
		return nil, fmt.Errorf("initialize plugin supervisor: %w", err)
	}

	clientModule, err := (&pluginapi.Config{
		Endpoints:        supervisorModule,
		Timeout:          cfg.PluginsOptions.InvokeTimeout,
		MaxResponseBytes: cfg.PluginsOptions.MaxResponseBytes,
	}).Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize plugin client: %w", err)
	}

	llmModule, err := (&llm.Config{
		Provider: cfg.LMOptions.Provider,
		Endpoint: cfg.LMOptions.Endpoint,
		Model:    cfg.LMOptions.Model,
		APIKey:   cfg.LMOptions.APIKey,
		Timeout:  cfg.LMOptions.Timeout,
	}).Complete().New(context.Background())
	if err != nil {
		return nil, fmt.Errorf("initialize language model client: %w", err)
	}

	usageConfig := &usage.Config{ArchiveSize: cfg.UsageOptions.ArchiveSize}
	if cfg.UsageOptions.DBPath != "" {
		archive, err := boltdb.Open(cfg.UsageOptions.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open usage archive %q: %w", cfg.UsageOptions.DBPath, err)
		}
		usageConfig.Store = archive
		logger.InfoX("server", "usage archive persisted at %s", cfg.UsageOptions.DBPath)
	}

	trackerModule, err := usageConfig.Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize usage tracker: %w", err)
	}

	historyConfig := &history.Config{}
	if cfg.HistoryOptions.DBPath != "" {
		store, err := sqlite.Open(cfg.HistoryOptions.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open conversation store %q: %w", cfg.HistoryOptions.DBPath, err)
		}
		historyConfig.Store = store
		logger.InfoX("server", "conversation history persisted at %s", cfg.HistoryOptions.DBPath)
	}

	historyModule, err := historyConfig.Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize conversation history: %w", err)
	}

	dispatchModule, err := (&dispatch.Config{
		LM:       llmModule,
		Plugins:  clientModule,
		Runtime:  supervisorModule,
		Tracker:  trackerModule,
		MaxSteps: cfg.DispatchOptions.MaxSteps,
	}).Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize dispatcher: %w", err)
	}

	lifecycleModule, err := (&lifecycle.Config{
		Registry:         registryModule,
		Gate:             gateModule,
		Supervisor:       supervisorModule,
		Tracker:          trackerModule,
		History:          historyModule,
		Autostart:        cfg.PluginsOptions.Autostart,
		DisableAutostart: cfg.PluginsOptions.DisableAutostart,
		StartDelay:       cfg.PluginsOptions.StartDelay,
		MaxStartAttempts: cfg.PluginsOptions.MaxStartAttempts,
	}).Complete().New()
	if err != nil {
		return nil, fmt.Errorf("initialize lifecycle controller: %w", err)
	}

	server := &apiServer{
		gs:               gs,
		gRPCAPIServer:    extraServer,
		genericAPIServer: genericServer,
		registryModule:   registryModule,
		gateModule:       gateModule,
		supervisorModule: supervisorModule,
		clientModule:     clientModule,
		llmModule:        llmModule,
		trackerModule:    trackerModule,
		historyModule:    historyModule,
		dispatchModule:   dispatchModule,
		lifecycleModule:  lifecycleModule,
		authConfig:       &middleware.AuthConfig{Token: cfg.GenericServerRunOptions.Token},
	}

	return server, nil
}

func (s *apiServer) PrepareRun() preparedAPIServer {
	initRouter(s.genericAPIServer.Engine, &routerDeps{
		registry:   s.registryModule,
		gate:       s.gateModule,
		supervisor: s.supervisorModule,
		dispatcher: s.dispatchModule,
		tracker:    s.trackerModule,
		history:    s.historyModule,
		lm:         s.llmModule,
		authConfig: s.authConfig,
	})

	watchCtx, watchCancel := context.WithCancel(context.Background())
	s.watchCancel = watchCancel
	if err := s.gateModule.WatchGrants(watchCtx); err != nil {
		logger.WarnX("server", "grants file watcher not running: %v", err)
	}

	s.gs.AddShutdownCallback(shutdown.Func(func(string) error {
		if s.watchCancel != nil {
			s.watchCancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.lifecycleModule.Shutdown(ctx)

		s.gRPCAPIServer.Stop()
		s.genericAPIServer.Close()

		return nil
	}))

	return preparedAPIServer{s}
}

func (s preparedAPIServer) Run() error {
	if err := s.lifecycleModule.Boot(context.Background()); err != nil {
		return err
	}

	go s.gRPCAPIServer.Run()

	// start shutdown managers
	if err := s.gs.Start(); err != nil {
		log.Fatalf("start shutdown manager failed: %s", err.Error())
	}

	return s.genericAPIServer.Run()
}

func buildGenericConfig(cfg *config.Config) (genericConfig *genericserver.Config, lastErr error) {
	genericConfig = genericserver.NewConfig()
	if lastErr = cfg.GenericServerRunOptions.ApplyTo(genericConfig); lastErr != nil {
		return
	}

	return
}

func buildExtraConfig(cfg *config.Config) (*ExtraConfig, error) {
	return &ExtraConfig{
		Addr:       fmt.Sprintf("%s:%d", cfg.GRPCOptions.BindAddress, cfg.GRPCOptions.BindPort),
		MaxMsgSize: cfg.GRPCOptions.MaxMsgSize,
	}, nil
}
