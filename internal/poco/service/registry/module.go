package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/logger"
)

// Config is the manifest registry configuration.
type Config struct {
	// Root is the plugins root directory. Every immediate subdirectory is a
	// plugin candidate.
	Root string
}

type completedConfig struct {
	*Config
}

// CompletedConfig is the registry configuration after defaulting.
type CompletedConfig struct {
	completedConfig
}

// Complete fills in defaults that can be derived from the environment.
func (c *Config) Complete() CompletedConfig {
	if c.Root == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			c.Root = filepath.Join(home, ".poco", "plugins")
		}
	}

	return CompletedConfig{completedConfig{c}}
}

// New builds the registry. The initial scan is left to the caller so boot can
// decide how a missing root is reported.
func (c CompletedConfig) New() (*Module, error) {
	if c.Root == "" {
		return nil, fmt.Errorf("plugins root is not set")
	}

	return &Module{
		root:     c.Root,
		byID:     make(map[string]*PluginDescriptor),
		failures: make(map[string]string),
	}, nil
}

// Module holds the descriptor set loaded from the plugins root. The set only
// changes through an explicit Scan; there is no filesystem watching.
type Module struct {
	root string

	mu        sync.RWMutex
	byID      map[string]*PluginDescriptor
	order     []string
	failures  map[string]string
	scannedAt time.Time
}

// Root returns the plugins root directory.
func (m *Module) Root() string {
	return m.root
}

// Scan walks the immediate subdirectories of the plugins root and replaces
// the registry content with the descriptors that validate. Directories whose
// manifest is missing or invalid are skipped and recorded; they never fail
// the scan. A missing root fails the whole scan.
func (m *Module) Scan() error {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errno.ErrPluginsRootAbsent, m.root)
		}
		return fmt.Errorf("read plugins root %s: %w", m.root, err)
	}

	byID := make(map[string]*PluginDescriptor)
	var order []string
	failures := make(map[string]string)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dir := filepath.Join(m.root, entry.Name())
		d, err := LoadManifest(dir)
		if err != nil {
			if os.IsNotExist(err) {
				// Not a plugin directory at all, skip silently.
				continue
			}
			logger.WarnX("registry", "skip plugin dir %q: %v", entry.Name(), err)
			failures[entry.Name()] = err.Error()
			continue
		}

		if prev, ok := byID[d.ID]; ok {
			logger.WarnX("registry", "skip plugin dir %q: duplicate id %q already loaded from %q",
				entry.Name(), d.ID, prev.Dir)
			failures[entry.Name()] = fmt.Sprintf("duplicate id %q", d.ID)
			continue
		}

		byID[d.ID] = d
		order = append(order, d.ID)
	}

	sort.Strings(order)

	m.mu.Lock()
	m.byID = byID
	m.order = order
	m.failures = failures
	m.scannedAt = time.Now()
	m.mu.Unlock()

	logger.InfoX("registry", "scanned %s: %d plugin(s), %d skipped", m.root, len(order), len(failures))

	return nil
}

// Rescan re-reads the plugins root. It is the only way the descriptor set
// changes after boot.
func (m *Module) Rescan() error {
	return m.Scan()
}

// Get returns the descriptor for id.
func (m *Module) Get(id string) (*PluginDescriptor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrPluginNotFound, id)
	}

	return d, nil
}

// List returns every descriptor ordered by id.
func (m *Module) List() []*PluginDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*PluginDescriptor, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}

	return out
}

// IDs returns every registered plugin id ordered alphabetically.
func (m *Module) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.order))
	copy(out, m.order)

	return out
}

// Failures returns the per-directory reasons recorded by the last scan.
func (m *Module) Failures() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(m.failures))
	for k, v := range m.failures {
		out[k] = v
	}

	return out
}

// ScannedAt returns the time of the last successful scan.
func (m *Module) ScannedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.scannedAt
}

// Len returns the number of registered plugins.
func (m *Module) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.byID)
}
