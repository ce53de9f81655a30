package provider

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreassistant/poco/internal/poco/service/llm/provider/helper"
	"github.com/libreassistant/poco/internal/poco/service/llm/provider/spi"
)

func fakeFactory(name string) spi.PluginFactory {
	return func() spi.ProviderPlugin {
		return &struct{ helper.BasePlugin }{helper.BasePlugin{PluginName: name}}
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("fake", fakeFactory("fake")))
	assert.Error(t, r.Register("fake", fakeFactory("fake")), "double registration must fail")

	factory, err := r.Get("fake")
	require.NoError(t, err)
	assert.Equal(t, "fake", factory().Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistryMerge(t *testing.T) {
	a := NewRegistry()
	require.NoError(t, a.Register("one", fakeFactory("one")))

	b := NewRegistry()
	require.NoError(t, b.Register("two", fakeFactory("two")))

	require.NoError(t, a.Merge(b))
	assert.Equal(t, 2, a.Len())

	// A clashing name refuses the merge.
	c := NewRegistry()
	require.NoError(t, c.Register("one", fakeFactory("one")))
	assert.Error(t, a.Merge(c))
}

func TestInTreeRegistry(t *testing.T) {
	r := NewInTreeRegistry()

	names := r.List()
	sort.Strings(names)
	assert.Equal(t, []string{
		"anthropic", "deepseek", "gemini", "glm", "kimi", "ollama", "openai", "qwen",
	}, names)

	// Every in-tree provider can build chat models.
	r.Range(func(name string, factory spi.PluginFactory) bool {
		p := factory()
		assert.Equal(t, name, p.Name())
		_, ok := p.(spi.ChatModelPlugin)
		assert.True(t, ok, "provider %s must implement ChatModelPlugin", name)
		return true
	})
}
