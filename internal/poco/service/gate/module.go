package gate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/registry"
)

// Config is the permission gate configuration.
type Config struct {
	// AutoApprove treats every declared capability set as approved. It is
	// only ever enabled through explicit configuration.
	AutoApprove bool

	// GrantsFile is where approved capability sets are persisted. Empty
	// disables persistence.
	GrantsFile string
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the gate configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in derivable defaults.
func (c *Config) Complete() CompletedConfig {
	if c.GrantsFile == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.GrantsFile = filepath.Join(home, ".poco", "grants.json")
		}
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the gate and loads previously persisted grants if any exist.
func (c CompletedConfig) New() (*Module, error) {
	m := &Module{
		autoApprove: c.AutoApprove,
		grantsFile:  c.GrantsFile,
		granted:     make(map[string]map[registry.Capability]struct{}),
	}

	if err := m.Reload(); err != nil {
		return nil, err
	}

	return m, nil
}

// Module decides whether a plugin's declared capabilities are approved.
type Module struct {
	autoApprove bool
	grantsFile  string

	mu      sync.RWMutex
	granted map[string]map[registry.Capability]struct{}
}

// AutoApprove reports whether the gate approves every declared set.
func (m *Module) AutoApprove() bool {
	return m.autoApprove
}

// Grant approves caps for the plugin id, adding to any existing set, and
// persists the result.
func (m *Module) Grant(id string, caps []registry.Capability) error {
	for _, c := range caps {
		if !c.Known() {
			return fmt.Errorf("unknown capability %q", c)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.granted[id]
	if !ok {
		set = make(map[registry.Capability]struct{})
		m.granted[id] = set
	}
	for _, c := range caps {
		set[c] = struct{}{}
	}

	return m.saveLocked()
}

// Revoke removes every grant for the plugin id and persists the result.
func (m *Module) Revoke(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.granted, id)

	return m.saveLocked()
}

// Approved returns the approved capability set for id in stable order.
func (m *Module) Approved(id string) []registry.Capability {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedCaps(m.granted[id])
}

// Missing returns the declared capabilities that are not approved for id, in
// stable order. Empty means the declaration is satisfied.
func (m *Module) Missing(id string, declared []registry.Capability) []registry.Capability {
	if m.autoApprove {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	set := m.granted[id]
	var missing []registry.Capability
	for _, c := range declared {
		if _, ok := set[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })

	return missing
}

// IsSatisfied reports whether every declared capability is approved for id.
// An empty declaration is always satisfied.
func (m *Module) IsSatisfied(id string, declared []registry.Capability) bool {
	return len(m.Missing(id, declared)) == 0
}

// Check verifies the descriptor's declared permissions against the approved
// set and returns a permission error naming the missing capabilities.
func (m *Module) Check(d *registry.PluginDescriptor) error {
	missing := m.Missing(d.ID, d.Permissions)
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf("%w: plugin %q missing approval for %v", errno.ErrPermissionDenied, d.ID, missing)
}

// Snapshot returns every grant keyed by plugin id, capabilities in stable
// order.
func (m *Module) Snapshot() map[string][]registry.Capability {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]registry.Capability, len(m.granted))
	for id, set := range m.granted {
		out[id] = sortedCaps(set)
	}

	return out
}

func sortedCaps(set map[registry.Capability]struct{}) []registry.Capability {
	if len(set) == 0 {
		return nil
	}

	out := make([]registry.Capability, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}
