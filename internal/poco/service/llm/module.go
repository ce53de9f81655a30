package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
	"github.com/libreassistant/poco/pkg/logger"
)

// Config holds the configuration for the language model module.
type Config struct {
	Provider string
	Endpoint string
	Model    string
	APIKey   string

	// Timeout bounds one model call.
	Timeout time.Duration

	// OutOfTreeRegistry allows registering additional provider plugins
	// beyond the built-in ones. If nil, only in-tree providers are
	// available.
	OutOfTreeRegistry *provider.Registry
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete validates and fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Provider == "" {
		c.Provider = "ollama"
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}

	return CompletedConfig{c}
}

// New builds the module: the in-tree provider registry is assembled, merged
// with any out-of-tree providers, and the configured provider builds the one
// chat model the orchestrator talks to.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	reg := provider.NewInTreeRegistry()
	if c.OutOfTreeRegistry != nil {
		if err := reg.Merge(c.OutOfTreeRegistry); err != nil {
			return nil, fmt.Errorf("merge out-of-tree providers: %w", err)
		}
	}

	factory, err := reg.Get(c.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errno.ErrLMUnavailable, err)
	}

	plugin := factory()
	chatPlugin, ok := plugin.(spi.ChatModelPlugin)
	if !ok {
		return nil, fmt.Errorf("provider %s cannot build chat models", c.Provider)
	}

	mc := plugin.DefaultConfig()
	if mc == nil {
		mc = &spi.ModelConfig{}
	}
	if c.Endpoint != "" {
		mc.BaseURL = c.Endpoint
	}
	if c.APIKey != "" {
		mc.APIKey = c.APIKey
	}
	mc.Model = c.Model

	cm, err := chatPlugin.BuildChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("build chat model %s/%s: %w", c.Provider, c.Model, err)
	}

	logger.InfoX("llm", "chat model ready: provider %s, model %s, endpoint %s", c.Provider, c.Model, mc.BaseURL)

	return &Module{
		Registry:     reg,
		chatModel:    cm,
		providerName: c.Provider,
		modelName:    c.Model,
		timeout:      c.Timeout,
	}, nil
}

// Module exposes the configured chat model to the orchestration loop.
type Module struct {
	// Registry holds every known provider plugin, in-tree and merged.
	Registry *provider.Registry

	chatModel    model.BaseChatModel
	providerName string
	modelName    string
	timeout      time.Duration
}

// Call sends the conversation to the model and returns the reply text. A
// model that cannot answer within the configured timeout counts as
// unavailable.
func (m *Module) Call(ctx context.Context, messages []*schema.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	out, err := m.chatModel.Generate(ctx, messages)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", fmt.Errorf("%w: model call", errno.ErrCancelled)
		}
		return "", fmt.Errorf("%w: %v", errno.ErrLMUnavailable, err)
	}

	return out.Content, nil
}

// ProviderName returns the active provider plugin name.
func (m *Module) ProviderName() string {
	return m.providerName
}

// ModelName returns the active model identifier.
func (m *Module) ModelName() string {
	return m.modelName
}
