package options

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/libreassistant/poco/internal/pkg/server"
)

// ServerRunOptions contains the options while running the HTTP surface.
type ServerRunOptions struct {
	// Mode is the gin run mode: debug, test or release.
	Mode string `json:"mode" mapstructure:"mode"`
	// Healthz controls whether the /healthz route is installed.
	Healthz bool `json:"healthz" mapstructure:"healthz"`
	// BindAddress is the IP the HTTP surface listens on. Loopback by default.
	BindAddress string `json:"bind-address" mapstructure:"bind-address"`
	// BindPort is the HTTP listen port.
	BindPort int `json:"bind-port" mapstructure:"bind-port"`
	// Token, when set, is required as a bearer token on non-loopback requests.
	Token string `json:"token" mapstructure:"token"`
	// EnableProfiling installs the pprof routes.
	EnableProfiling bool `json:"profiling" mapstructure:"profiling"`
}

// NewServerRunOptions creates a ServerRunOptions with default parameters.
func NewServerRunOptions() *ServerRunOptions {
	return &ServerRunOptions{
		Mode:        gin.ReleaseMode,
		Healthz:     true,
		BindAddress: "127.0.0.1",
		BindPort:    11750,
	}
}

// ApplyTo applies the run options to the generic server config.
func (o *ServerRunOptions) ApplyTo(c *server.Config) error {
	c.Mode = o.Mode
	c.Healthz = o.Healthz
	c.EnableProfiling = o.EnableProfiling
	c.InsecureServing = &server.InsecureServingInfo{
		Address: fmt.Sprintf("%s:%d", o.BindAddress, o.BindPort),
	}

	return nil
}

// Validate checks ServerRunOptions fields.
func (o *ServerRunOptions) Validate() []error {
	var errs []error

	switch o.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		errs = append(errs, fmt.Errorf("invalid serving mode %q, must be debug, release or test", o.Mode))
	}

	if o.BindPort < 1 || o.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("serving bind port %d out of range [1, 65535]", o.BindPort))
	}

	return errs
}

// AddFlags adds flags related to the HTTP surface to the specified FlagSet.
func (o *ServerRunOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Mode, "serving.mode", o.Mode, "Run mode of the HTTP engine: debug, test or release.")
	fs.BoolVar(&o.Healthz, "serving.healthz", o.Healthz, "Install the /healthz route.")
	fs.StringVar(&o.BindAddress, "serving.bind-address", o.BindAddress, "IP address the HTTP surface listens on.")
	fs.IntVar(&o.BindPort, "serving.bind-port", o.BindPort, "Port the HTTP surface listens on.")
	fs.StringVar(&o.Token, "serving.token", o.Token, "Bearer token required for non-loopback requests. Empty disables the check.")
	fs.BoolVar(&o.EnableProfiling, "serving.profiling", o.EnableProfiling, "Install the pprof routes.")
}
