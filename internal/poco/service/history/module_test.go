package history

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledModuleIsInert(t *testing.T) {
	ctx := context.Background()

	m, err := (&Config{}).Complete().New()
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	id, err := m.EnsureConversation(ctx, "whatever", "title")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, m.AppendMessage(ctx, "whatever", "user", "hello"))

	msgs, err := m.History(ctx, "whatever")
	require.NoError(t, err)
	assert.Nil(t, msgs)

	list, err := m.Conversations(ctx)
	require.NoError(t, err)
	assert.Nil(t, list)

	require.NoError(t, m.Close())
}

func TestClampTitle(t *testing.T) {
	assert.Equal(t, "short", clampTitle("short"))

	long := strings.Repeat("x", 200)
	clamped := clampTitle(long)
	assert.Len(t, []rune(clamped), maxTitleRunes)
}
