package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// LMOptions configures the language model backend the dispatcher talks to.
type LMOptions struct {
	// Provider selects the provider plugin: ollama, openai, anthropic,
	// gemini, deepseek, qwen, glm or kimi.
	Provider string `json:"provider" mapstructure:"provider"`
	// Endpoint overrides the provider's default base URL.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	// Model is the model identifier requested from the provider.
	Model string `json:"model" mapstructure:"model"`
	// APIKey authenticates against hosted providers. Unused by ollama.
	APIKey string `json:"api-key" mapstructure:"api-key"`
	// Timeout bounds a single LM call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewLMOptions returns LMOptions with the local-first defaults.
func NewLMOptions() *LMOptions {
	return &LMOptions{
		Provider: "ollama",
		Model:    "llama3.2",
		Timeout:  60 * time.Second,
	}
}

// Validate checks LMOptions fields.
func (o *LMOptions) Validate() []error {
	var errs []error

	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("lm provider must not be empty"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("lm model must not be empty"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("lm timeout must be positive"))
	}

	return errs
}

// AddFlags adds flags for the language model options.
func (o *LMOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Provider, "lm.provider", o.Provider, "Language model provider plugin.")
	fs.StringVar(&o.Endpoint, "lm.endpoint", o.Endpoint, "Override the provider's default endpoint.")
	fs.StringVar(&o.Model, "lm.model", o.Model, "Model identifier requested from the provider.")
	fs.StringVar(&o.APIKey, "lm.api-key", o.APIKey, "API key for hosted providers.")
	fs.DurationVar(&o.Timeout, "lm.timeout", o.Timeout, "Deadline for a single language model call.")
}
