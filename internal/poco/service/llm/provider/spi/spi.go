package spi

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ModelConfig carries the connection settings for one chat model.
type ModelConfig struct {
	// BaseURL is the provider endpoint. Empty picks the provider default.
	BaseURL string
	// APIKey may be a literal key or a "${ENV_VAR}" reference.
	APIKey string
	// Model is the provider-side model identifier.
	Model string
}

// ProviderPlugin is the interface for provider plugins.
type ProviderPlugin interface {
	// Name returns the name of the provider plugin.
	Name() string
	// DefaultConfig returns the default connection settings for the provider.
	DefaultConfig() *ModelConfig
}

// ChatModelPlugin extends ProviderPlugin with the ability to build Eino
// BaseChatModel instances for actual inference. The returned model supports
// Generate and Stream.
type ChatModelPlugin interface {
	ProviderPlugin
	BuildChatModel(ctx context.Context, cfg *ModelConfig) (model.BaseChatModel, error)
}

// PluginFactory is a function that creates a ProviderPlugin instance.
type PluginFactory func() ProviderPlugin
