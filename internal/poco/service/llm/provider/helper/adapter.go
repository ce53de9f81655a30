package helper

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

// NewOpenAICompatibleChatModel creates an Eino ChatModel using the
// OpenAI-compatible API. This is the common path for providers that expose
// an OpenAI-compatible endpoint (OpenAI, Kimi/Moonshot, GLM/ZhiPu, etc.).
func NewOpenAICompatibleChatModel(ctx context.Context, cfg *spi.ModelConfig) (model.BaseChatModel, error) {
	conf := &einoOpenAI.ChatModelConfig{
		Model:     cfg.Model,
		APIKey:    ResolveEnvValue(cfg.APIKey),
		MaxTokens: gptr.Of(4096),
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
	}

	// Set BaseURL only for non-default OpenAI endpoints.
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return einoOpenAI.NewChatModel(ctx, conf)
}
