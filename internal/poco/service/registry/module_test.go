package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
)

func writePlugin(t *testing.T, root, dir, manifest string) {
	t.Helper()

	pdir := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(pdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pdir, ManifestFileName), []byte(manifest), 0o644))
}

func newTestModule(t *testing.T, root string) *Module {
	t.Helper()

	cfg := &Config{Root: root}
	m, err := cfg.Complete().New()
	require.NoError(t, err)

	return m
}

const goodManifest = `{
	"id": "%s",
	"name": "Good",
	"version": "1.0.0",
	"description": "A well formed plugin.",
	"author": "LibreAssistant",
	"entrypoint": "./run.sh",
	"port": %d,
	"permissions": ["network"]
}`

func TestScanMissingRoot(t *testing.T) {
	m := newTestModule(t, filepath.Join(t.TempDir(), "does-not-exist"))

	err := m.Scan()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPluginsRootAbsent))
}

func TestScanSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "good", `{
		"id": "good",
		"name": "Good",
		"version": "1.0.0",
		"description": "ok",
		"author": "a",
		"entrypoint": "./run",
		"port": 5100,
		"permissions": []
	}`)
	writePlugin(t, root, "broken", `{"id": "broken"`)
	writePlugin(t, root, "badport", `{
		"id": "badport",
		"name": "Bad",
		"version": "1.0.0",
		"description": "d",
		"author": "a",
		"entrypoint": "./run",
		"port": 80
	}`)
	// A directory without a manifest is not a plugin candidate at all.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notplugin"), 0o755))
	// Plain files in the root are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	m := newTestModule(t, root)
	require.NoError(t, m.Scan())

	assert.Equal(t, []string{"good"}, m.IDs())

	failures := m.Failures()
	assert.Contains(t, failures, "broken")
	assert.Contains(t, failures, "badport")
	assert.NotContains(t, failures, "notplugin")
	assert.NotContains(t, failures, "README.md")
}

func TestScanDuplicateID(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", `{
		"id": "same",
		"name": "A",
		"version": "1.0.0",
		"description": "d",
		"author": "a",
		"entrypoint": "./run",
		"port": 5100
	}`)
	writePlugin(t, root, "beta", `{
		"id": "same",
		"name": "B",
		"version": "2.0.0",
		"description": "d",
		"author": "a",
		"entrypoint": "./run",
		"port": 5101
	}`)

	m := newTestModule(t, root)
	require.NoError(t, m.Scan())

	require.Equal(t, 1, m.Len())
	d, err := m.Get("same")
	require.NoError(t, err)
	// ReadDir yields alpha before beta, so the first load wins.
	assert.Equal(t, "A", d.Name)
	assert.Contains(t, m.Failures(), "beta")
}

func TestRescanPicksUpChanges(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "one", fmt.Sprintf(goodManifest, "one", 5100))

	m := newTestModule(t, root)
	require.NoError(t, m.Scan())
	assert.Equal(t, []string{"one"}, m.IDs())

	writePlugin(t, root, "two", fmt.Sprintf(goodManifest, "two", 5101))

	// Nothing changes until an explicit rescan.
	assert.Equal(t, []string{"one"}, m.IDs())

	require.NoError(t, m.Rescan())
	assert.Equal(t, []string{"one", "two"}, m.IDs())
}

func TestGetNotFound(t *testing.T) {
	m := newTestModule(t, t.TempDir())
	require.NoError(t, m.Scan())

	_, err := m.Get("ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errno.ErrPluginNotFound))
}

func TestListOrderedByID(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "zdir", fmt.Sprintf(goodManifest, "apple", 5100))
	writePlugin(t, root, "adir", fmt.Sprintf(goodManifest, "zebra", 5101))

	m := newTestModule(t, root)
	require.NoError(t, m.Scan())

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, "apple", list[0].ID)
	assert.Equal(t, "zebra", list[1].ID)
}
