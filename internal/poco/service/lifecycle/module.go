package lifecycle

import (
	"fmt"
	"time"

	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/internal/poco/service/usage"
)

const (
	// DefaultStartDelay spaces serial autostarts so plugins binding
	// neighbouring ports do not race each other.
	DefaultStartDelay = 250 * time.Millisecond

	// DefaultMaxStartAttempts bounds how often autostart retries one plugin.
	DefaultMaxStartAttempts = 3
)

// Config wires the boot and shutdown controller to the services it drives.
type Config struct {
	Registry   *registry.Module
	Gate       *gate.Module
	Supervisor *supervisor.Module
	Tracker    *usage.Module
	History    *history.Module

	// Autostart launches every approved plugin right after the boot scan.
	Autostart bool

	// DisableAutostart wins over Autostart when both are set.
	DisableAutostart bool

	// StartDelay is the pause between two serial autostarts and between
	// retries of the same plugin.
	StartDelay time.Duration

	// MaxStartAttempts caps autostart retries per plugin before it is left
	// alone until a manual start.
	MaxStartAttempts int
}

type completedConfig struct {
	*Config
}

// CompletedConfig is a Config with defaults applied.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in defaults for unset fields.
func (c *Config) Complete() CompletedConfig {
	if c.StartDelay <= 0 {
		c.StartDelay = DefaultStartDelay
	}
	if c.MaxStartAttempts <= 0 {
		c.MaxStartAttempts = DefaultMaxStartAttempts
	}

	return CompletedConfig{completedConfig{c}}
}

// New validates the wiring and returns the lifecycle controller.
func (c CompletedConfig) New() (*Module, error) {
	switch {
	case c.Registry == nil:
		return nil, fmt.Errorf("lifecycle: no registry")
	case c.Gate == nil:
		return nil, fmt.Errorf("lifecycle: no permission gate")
	case c.Supervisor == nil:
		return nil, fmt.Errorf("lifecycle: no supervisor")
	case c.Tracker == nil:
		return nil, fmt.Errorf("lifecycle: no usage tracker")
	}

	return &Module{
		registry:         c.Registry,
		gate:             c.Gate,
		supervisor:       c.Supervisor,
		tracker:          c.Tracker,
		history:          c.History,
		autostart:        c.Autostart && !c.DisableAutostart,
		startDelay:       c.StartDelay,
		maxStartAttempts: c.MaxStartAttempts,
	}, nil
}

// Module drives the daemon through its boot and shutdown sequences.
type Module struct {
	registry   *registry.Module
	gate       *gate.Module
	supervisor *supervisor.Module
	tracker    *usage.Module
	history    *history.Module

	autostart        bool
	startDelay       time.Duration
	maxStartAttempts int
}

// Autostart reports whether boot will launch approved plugins on its own.
func (m *Module) Autostart() bool {
	return m.autostart
}
