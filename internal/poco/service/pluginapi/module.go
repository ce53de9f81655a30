package pluginapi

import (
	"fmt"
	"net/http"
	"time"
)

// Endpoints resolves a plugin id to its loopback base URL. Resolution fails
// unless the plugin is running.
type Endpoints interface {
	Endpoint(id string) (string, error)
}

// Config is the plugin client configuration.
type Config struct {
	Endpoints Endpoints

	// Timeout bounds one invocation end to end.
	Timeout time.Duration
	// MaxResponseBytes caps how much of a plugin response is read.
	MaxResponseBytes int64
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the client configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = 10 << 20
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the plugin client.
func (c CompletedConfig) New() (*Module, error) {
	if c.Endpoints == nil {
		return nil, fmt.Errorf("plugin client requires an endpoint resolver")
	}

	return &Module{
		endpoints: c.Endpoints,
		timeout:   c.Timeout,
		maxBody:   c.MaxResponseBytes,
		hc:        &http.Client{},
	}, nil
}

// Module invokes operations on running plugins over loopback HTTP.
type Module struct {
	endpoints Endpoints
	timeout   time.Duration
	maxBody   int64
	hc        *http.Client
}
