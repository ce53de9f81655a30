package deepseek

import (
	"context"

	einoDeepseek "github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino/components/model"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

const Name = "deepseek"

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
	conf := &einoDeepseek.ChatModelConfig{
		APIKey:  helper.ResolveEnvValue(cfg.APIKey),
		Model:   cfg.Model,
		BaseURL: "https://api.deepseek.com/v1",
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return einoDeepseek.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{
		BaseURL: "https://api.deepseek.com/v1",
		APIKey:  "${DEEPSEEK_API_KEY}",
	}
}
