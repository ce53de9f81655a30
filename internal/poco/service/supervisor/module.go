package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/pkg/logger"
)

// Config is the supervisor configuration.
type Config struct {
	Registry *registry.Module
	Gate     *gate.Module

	// ReadinessDeadline bounds the whole readiness probe of one start.
	ReadinessDeadline time.Duration
	// StopDeadline is how long a plugin gets to honor SIGTERM before SIGKILL.
	StopDeadline time.Duration
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the supervisor configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.StopDeadline <= 0 {
		c.StopDeadline = 5 * time.Second
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the supervisor and seeds instances from the registry content.
// ctx is the parent of the per-process monitor goroutines.
func (c CompletedConfig) New(ctx context.Context) (*Module, error) {
	if c.Registry == nil {
		return nil, fmt.Errorf("supervisor requires a registry")
	}
	if c.Gate == nil {
		return nil, fmt.Errorf("supervisor requires a permission gate")
	}

	m := &Module{
		ctx:               ctx,
		registry:          c.Registry,
		gate:              c.Gate,
		readinessDeadline: c.ReadinessDeadline,
		stopDeadline:      c.StopDeadline,
		instances:         make(map[string]*instance),
	}
	m.Sync()

	return m, nil
}

// Module supervises one process per registered plugin.
type Module struct {
	ctx      context.Context
	registry *registry.Module
	gate     *gate.Module

	readinessDeadline time.Duration
	stopDeadline      time.Duration

	mu        sync.RWMutex
	instances map[string]*instance
}

// Sync reconciles the instance table with the registry. New plugins get a
// fresh instance; plugins that disappeared from the registry are dropped
// unless they still have a live process. Live instances keep the descriptor
// they started with until their next start.
func (m *Module) Sync() {
	desired := make(map[string]*registry.PluginDescriptor)
	for _, d := range m.registry.List() {
		desired[d.ID] = d
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, d := range desired {
		inst, ok := m.instances[id]
		if !ok {
			m.instances[id] = newInstance(d, m.gate.IsSatisfied(id, d.Permissions))
			continue
		}

		inst.mu.Lock()
		switch inst.state {
		case StateDiscovered, StateApproved, StateStopped:
			inst.desc = d
			if inst.state == StateDiscovered && m.gate.IsSatisfied(id, d.Permissions) {
				inst.state = StateApproved
			}
		default:
			// Starting, running, stopping or failed: the refreshed
			// descriptor applies from the next start.
		}
		inst.mu.Unlock()
	}

	for id, inst := range m.instances {
		if _, ok := desired[id]; ok {
			continue
		}
		switch inst.currentState() {
		case StateStarting, StateRunning, StateStopping:
			logger.WarnX("supervisor", "plugin %q gone from registry but still live, keeping instance", id)
		default:
			delete(m.instances, id)
		}
	}
}

// MarkApproved moves a discovered instance to approved once the gate
// satisfies its declared permissions.
func (m *Module) MarkApproved(id string) error {
	inst, err := m.get(id)
	if err != nil {
		return err
	}

	d := inst.descriptor()
	if err := m.gate.Check(d); err != nil {
		return err
	}

	inst.mu.Lock()
	if inst.state == StateDiscovered {
		inst.state = StateApproved
	}
	inst.mu.Unlock()

	return nil
}

func (m *Module) get(id string) (*instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrPluginNotFound, id)
	}

	return inst, nil
}

// Status returns the current view of one plugin.
func (m *Module) Status(id string) (Status, error) {
	inst, err := m.get(id)
	if err != nil {
		return Status{}, err
	}

	return inst.snapshot(), nil
}

// StatusAll returns the status of every instance ordered by id.
func (m *Module) StatusAll() []Status {
	m.mu.RLock()
	out := make([]Status, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// Running returns the descriptors of every running plugin ordered by id.
func (m *Module) Running() []*registry.PluginDescriptor {
	m.mu.RLock()
	var out []*registry.PluginDescriptor
	for _, inst := range m.instances {
		if inst.currentState() == StateRunning {
			out = append(out, inst.descriptor())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// IsRunning reports whether the plugin is in the running state.
func (m *Module) IsRunning(id string) bool {
	inst, err := m.get(id)
	if err != nil {
		return false
	}

	return inst.currentState() == StateRunning
}

// Endpoint returns the loopback base URL of a running plugin.
func (m *Module) Endpoint(id string) (string, error) {
	inst, err := m.get(id)
	if err != nil {
		return "", err
	}
	if inst.currentState() != StateRunning {
		return "", fmt.Errorf("%w: %s", errno.ErrPluginNotRunning, id)
	}

	return fmt.Sprintf("http://127.0.0.1:%d", inst.descriptor().Port), nil
}
