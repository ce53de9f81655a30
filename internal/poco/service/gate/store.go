package gate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/utils/json"
)

// Reload replaces the in-memory grants with the content of the grants file.
// A missing file leaves the gate empty; unknown capabilities in the file are
// dropped with a warning.
func (m *Module) Reload() error {
	if m.grantsFile == "" {
		return nil
	}

	data, err := os.ReadFile(m.grantsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read grants file %s: %w", m.grantsFile, err)
	}

	var raw map[string][]registry.Capability
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode grants file %s: %w", m.grantsFile, err)
	}

	granted := make(map[string]map[registry.Capability]struct{}, len(raw))
	for id, caps := range raw {
		set := make(map[registry.Capability]struct{}, len(caps))
		for _, c := range caps {
			if !c.Known() {
				logger.WarnX("gate", "grants file: drop unknown capability %q for %q", c, id)
				continue
			}
			set[c] = struct{}{}
		}
		granted[id] = set
	}

	m.mu.Lock()
	m.granted = granted
	m.mu.Unlock()

	return nil
}

// saveLocked persists the grants. Callers hold m.mu.
func (m *Module) saveLocked() error {
	if m.grantsFile == "" {
		return nil
	}

	out := make(map[string][]registry.Capability, len(m.granted))
	for id, set := range m.granted {
		out[id] = sortedCaps(set)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode grants: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.grantsFile), 0o755); err != nil {
		return fmt.Errorf("create grants dir: %w", err)
	}
	if err := os.WriteFile(m.grantsFile, data, 0o644); err != nil {
		return fmt.Errorf("write grants file %s: %w", m.grantsFile, err)
	}

	return nil
}
