package glm

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

const Name = "glm"

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
	return helper.NewOpenAICompatibleChatModel(ctx, cfg)
}

func (p *Plugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		APIKey:  "${ZHIPU_API_KEY}",
	}
}
