package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/libreassistant/poco/internal/poco/service/pluginapi"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/usage"
)

// DefaultMaxSteps caps model/plugin ping-pong per dispatch.
const DefaultMaxSteps = 5

// DefaultTimeout bounds one whole dispatch run.
const DefaultTimeout = 5 * time.Minute

// ChatCaller produces one completion for a conversation.
type ChatCaller interface {
	Call(ctx context.Context, messages []*schema.Message) (string, error)
}

// PluginInvoker posts one operation to a running plugin.
type PluginInvoker interface {
	Invoke(ctx context.Context, id string, input map[string]interface{}) (*pluginapi.Response, error)
}

// RunningProvider exposes the plugins currently able to take calls.
type RunningProvider interface {
	Running() []*registry.PluginDescriptor
	IsRunning(id string) bool
}

// Config is the dispatcher configuration.
type Config struct {
	LM      ChatCaller
	Plugins PluginInvoker
	Runtime RunningProvider
	Tracker *usage.Module

	// MaxSteps caps loop iterations per dispatch. Zero refuses every
	// dispatch with the budget error before the first model call; negative
	// selects DefaultMaxSteps.
	MaxSteps int

	// Timeout bounds one whole dispatch run. Negative disables the bound.
	Timeout time.Duration
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the dispatcher configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.MaxSteps < 0 {
		c.MaxSteps = DefaultMaxSteps
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the dispatcher.
func (c CompletedConfig) New() (*Module, error) {
	switch {
	case c.LM == nil:
		return nil, fmt.Errorf("dispatch: no language model")
	case c.Plugins == nil:
		return nil, fmt.Errorf("dispatch: no plugin client")
	case c.Runtime == nil:
		return nil, fmt.Errorf("dispatch: no plugin runtime")
	case c.Tracker == nil:
		return nil, fmt.Errorf("dispatch: no usage tracker")
	}

	return &Module{
		lm:       c.LM,
		plugins:  c.Plugins,
		runtime:  c.Runtime,
		tracker:  c.Tracker,
		maxSteps: c.MaxSteps,
		timeout:  c.Timeout,
	}, nil
}

// Module drives single user turns through the model and the running plugins.
type Module struct {
	lm       ChatCaller
	plugins  PluginInvoker
	runtime  RunningProvider
	tracker  *usage.Module
	maxSteps int
	timeout  time.Duration
}
