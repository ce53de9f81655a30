package ollama

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOllama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

const Name = "ollama"

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
	conf := &einoOllama.ChatModelConfig{
		BaseURL: "http://127.0.0.1:11434/v1",
		Model:   cfg.Model,
		Options: &einoOllama.Options{},
		// Orchestration needs plain completions; thinking output would leak
		// into the reply the codec parses.
		Thinking: &einoOllama.ThinkValue{Value: gptr.Of(false)},
	}
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return einoOllama.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{
		BaseURL: "http://127.0.0.1:11434/v1",
		APIKey:  "${OLLAMA_API_KEY}",
	}
}
