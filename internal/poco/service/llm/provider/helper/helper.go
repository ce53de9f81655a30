package helper

import (
	"os"
	"strings"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

type BasePlugin struct {
	PluginName string
}

func (b *BasePlugin) Name() string {
	return b.PluginName
}

// DefaultConfig returns the default connection settings for the provider.
func (b *BasePlugin) DefaultConfig() *spi.ModelConfig {
	return &spi.ModelConfig{}
}

// ResolveEnvValue resolves "${ENV_VAR}" references in a string.
func ResolveEnvValue(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envKey := s[2 : len(s)-1]
		return os.Getenv(envKey)
	}
	return s
}
