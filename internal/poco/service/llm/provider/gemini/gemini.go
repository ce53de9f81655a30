package gemini

import (
	"context"
	"fmt"

	einoGemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

const Name = "gemini"

var _ spi.ChatModelPlugin = (*Plugin)(nil)

type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

// BuildChatModel overrides the OpenAI-compatible path because Gemini speaks
// Google's generative AI API.
func (p *Plugin) BuildChatModel(ctx context.Context, cfg *spi.ModelConfig) (model.BaseChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  helper.ResolveEnvValue(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: "https://generativelanguage.googleapis.com/",
		},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client for %s: %w", cfg.Model, err)
	}

	conf := &einoGemini.Config{
		Client: client,
		Model:  cfg.Model,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
		},
	}

	return einoGemini.NewChatModel(ctx, conf)
}

func (p *Plugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{
		BaseURL: "https://generativelanguage.googleapis.com/",
		APIKey:  "${GEMINI_API_KEY}",
	}
}
