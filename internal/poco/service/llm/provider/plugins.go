package provider

import (
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/anthropic"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/deepseek"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/gemini"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/glm"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/kimi"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/ollama"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/openai"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/qwen"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

// NewInTreeRegistry builds the registry of built-in providers.
func NewInTreeRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(anthropic.Name, func() spi.ProviderPlugin { return anthropic.New() })
	r.MustRegister(openai.Name, func() spi.ProviderPlugin { return openai.New() })
	r.MustRegister(gemini.Name, func() spi.ProviderPlugin { return gemini.New() })
	r.MustRegister(deepseek.Name, func() spi.ProviderPlugin { return deepseek.New() })
	r.MustRegister(glm.Name, func() spi.ProviderPlugin { return glm.New() })
	r.MustRegister(kimi.Name, func() spi.ProviderPlugin { return kimi.New() })
	r.MustRegister(qwen.Name, func() spi.ProviderPlugin { return qwen.New() })
	r.MustRegister(ollama.Name, func() spi.ProviderPlugin { return ollama.New() })

	return r
}
