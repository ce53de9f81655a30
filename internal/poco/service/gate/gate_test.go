package gate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/registry"
)

func newTestGate(t *testing.T, autoApprove bool) *Module {
	t.Helper()

	cfg := &Config{
		AutoApprove: autoApprove,
		GrantsFile:  filepath.Join(t.TempDir(), "grants.json"),
	}
	m, err := cfg.Complete().New()
	require.NoError(t, err)

	return m
}

func TestIsSatisfiedSubset(t *testing.T) {
	m := newTestGate(t, false)
	require.NoError(t, m.Grant("web-search", []registry.Capability{
		registry.CapabilityNetwork,
		registry.CapabilityFileRead,
	}))

	assert.True(t, m.IsSatisfied("web-search", nil))
	assert.True(t, m.IsSatisfied("web-search", []registry.Capability{registry.CapabilityNetwork}))
	assert.True(t, m.IsSatisfied("web-search", []registry.Capability{
		registry.CapabilityNetwork,
		registry.CapabilityFileRead,
	}))

	assert.False(t, m.IsSatisfied("web-search", []registry.Capability{registry.CapabilityExec}))
	assert.Equal(t, []registry.Capability{registry.CapabilityExec},
		m.Missing("web-search", []registry.Capability{registry.CapabilityNetwork, registry.CapabilityExec}))
}

func TestIsSatisfiedUnknownPlugin(t *testing.T) {
	m := newTestGate(t, false)

	assert.True(t, m.IsSatisfied("ghost", nil))
	assert.False(t, m.IsSatisfied("ghost", []registry.Capability{registry.CapabilityNetwork}))
}

func TestAutoApprove(t *testing.T) {
	m := newTestGate(t, true)

	assert.True(t, m.IsSatisfied("anything", []registry.Capability{
		registry.CapabilityExec,
		registry.CapabilitySystemInfo,
	}))
	assert.Empty(t, m.Missing("anything", []registry.Capability{registry.CapabilityExec}))
}

func TestCheckPermissionDenied(t *testing.T) {
	m := newTestGate(t, false)
	d := &registry.PluginDescriptor{
		ID:          "web-search",
		Permissions: []registry.Capability{registry.CapabilityNetwork},
	}

	err := m.Check(d)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPermissionDenied))

	require.NoError(t, m.Grant("web-search", d.Permissions))
	assert.NoError(t, m.Check(d))
}

func TestGrantUnknownCapability(t *testing.T) {
	m := newTestGate(t, false)

	err := m.Grant("x", []registry.Capability{"root-access"})
	require.Error(t, err)
	assert.Empty(t, m.Approved("x"))
}

func TestGrantsPersistAcrossRestart(t *testing.T) {
	file := filepath.Join(t.TempDir(), "grants.json")

	cfg := &Config{GrantsFile: file}
	m, err := cfg.Complete().New()
	require.NoError(t, err)

	require.NoError(t, m.Grant("one", []registry.Capability{registry.CapabilityNetwork}))
	require.NoError(t, m.Grant("two", []registry.Capability{
		registry.CapabilityFileRead,
		registry.CapabilityFileWrite,
	}))
	require.NoError(t, m.Revoke("one"))

	cfg2 := &Config{GrantsFile: file}
	m2, err := cfg2.Complete().New()
	require.NoError(t, err)

	assert.Empty(t, m2.Approved("one"))
	assert.Equal(t, []registry.Capability{
		registry.CapabilityFileRead,
		registry.CapabilityFileWrite,
	}, m2.Approved("two"))
}

func TestReloadDropsUnknownCapabilities(t *testing.T) {
	file := filepath.Join(t.TempDir(), "grants.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"p": ["network", "root-access"]}`), 0o644))

	cfg := &Config{GrantsFile: file}
	m, err := cfg.Complete().New()
	require.NoError(t, err)

	assert.Equal(t, []registry.Capability{registry.CapabilityNetwork}, m.Approved("p"))
}

func TestSatisfactionMatchesSetInclusion(t *testing.T) {
	vocab := registry.KnownCapabilities()

	rapid.Check(t, func(t *rapid.T) {
		m := &Module{granted: make(map[string]map[registry.Capability]struct{})}

		grantedIdx := rapid.SliceOfDistinct(rapid.IntRange(0, len(vocab)-1), rapid.ID).Draw(t, "granted")
		declaredIdx := rapid.SliceOfDistinct(rapid.IntRange(0, len(vocab)-1), rapid.ID).Draw(t, "declared")

		granted := make(map[registry.Capability]struct{})
		var grantList []registry.Capability
		for _, i := range grantedIdx {
			granted[vocab[i]] = struct{}{}
			grantList = append(grantList, vocab[i])
		}
		var declared []registry.Capability
		for _, i := range declaredIdx {
			declared = append(declared, vocab[i])
		}

		if len(grantList) > 0 {
			if err := m.Grant("p", grantList); err != nil {
				t.Fatalf("grant: %v", err)
			}
		}

		want := true
		for _, c := range declared {
			if _, ok := granted[c]; !ok {
				want = false
				break
			}
		}

		if got := m.IsSatisfied("p", declared); got != want {
			t.Fatalf("IsSatisfied = %v, want %v (granted %v, declared %v)", got, want, grantList, declared)
		}
	})
}
