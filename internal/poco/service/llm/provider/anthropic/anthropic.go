package anthropic

import (
	"context"

	einoClaude "github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino/components/model"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

const Name = "anthropic"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildChatModel(ctx context.Context, cfg *spi.ModelConfig) (model.BaseChatModel, error) {
	conf := &einoClaude.Config{
		APIKey:    helper.ResolveEnvValue(cfg.APIKey),
		Model:     cfg.Model,
		MaxTokens: 4096,
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = &cfg.BaseURL
	}

	return einoClaude.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{
		BaseURL: "https://api.anthropic.com/v1",
		APIKey:  "${ANTHROPIC_API_KEY}",
	}
}
