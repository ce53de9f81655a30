package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/pkg/utils/json"
)

func TestParseDirectMessage(t *testing.T) {
	d := Parse(`{"action": "message", "content": {"text": "Hello! How can I help?", "markdown": false}}`)

	assert.Equal(t, ActionMessage, d.Action)
	require.NotNil(t, d.Message)
	assert.Equal(t, "Hello! How can I help?", d.Message.Text)
	assert.False(t, d.Message.Markdown)
	assert.False(t, d.NonCompliant)
}

func TestParseDirectInvoke(t *testing.T) {
	d := Parse(`{
		"action": "plugin_invoke",
		"content": {
			"plugin": "web-search",
			"input": {"operation": "search", "query": "latest items"},
			"reason": "the user asked for current data"
		}
	}`)

	assert.Equal(t, ActionPluginInvoke, d.Action)
	require.NotNil(t, d.Invoke)
	assert.Equal(t, "web-search", d.Invoke.Plugin)
	assert.Equal(t, "latest items", d.Invoke.Input["query"])
	assert.Equal(t, "the user asked for current data", d.Invoke.Reason)
	assert.False(t, d.NonCompliant)
}

func TestParseFencedJSON(t *testing.T) {
	raw := "Here is what I will do:\n```json\n" +
		`{"action": "message", "content": {"text": "done", "markdown": true}}` +
		"\n```\nThanks!"

	d := Parse(raw)
	assert.Equal(t, ActionMessage, d.Action)
	require.NotNil(t, d.Message)
	assert.Equal(t, "done", d.Message.Text)
	assert.True(t, d.Message.Markdown)
	assert.False(t, d.NonCompliant, "a fenced reply parses cleanly")
	assert.Equal(t, raw, d.Raw)
}

func TestParseFencedWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"action\": \"message\", \"content\": {\"text\": \"ok\"}}\n```"

	d := Parse(raw)
	assert.Equal(t, ActionMessage, d.Action)
	assert.False(t, d.NonCompliant)
}

func TestParseBraceBalancing(t *testing.T) {
	raw := `Sure thing. {"action": "plugin_invoke", "content": {"plugin": "notes", "input": {"operation": "list"}}} hope that helps`

	d := Parse(raw)
	assert.Equal(t, ActionPluginInvoke, d.Action)
	require.NotNil(t, d.Invoke)
	assert.Equal(t, "notes", d.Invoke.Plugin)
	assert.False(t, d.NonCompliant)
}

func TestParseBracesInsideStrings(t *testing.T) {
	raw := `prefix {"action": "message", "content": {"text": "a { b } c \" d"}} suffix`

	d := Parse(raw)
	assert.Equal(t, ActionMessage, d.Action)
	require.NotNil(t, d.Message)
	assert.Equal(t, `a { b } c " d`, d.Message.Text)
}

func TestParseSkipsInvalidCandidates(t *testing.T) {
	raw := "```json\n{\"action\": \"unknown\"}\n```\n" +
		"```json\n{\"action\": \"message\", \"content\": {\"text\": \"second block wins\"}}\n```"

	d := Parse(raw)
	assert.Equal(t, ActionMessage, d.Action)
	require.NotNil(t, d.Message)
	assert.Equal(t, "second block wins", d.Message.Text)
	assert.False(t, d.NonCompliant)
}

func TestParseNonCompliant(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "plain prose", raw: "I think the answer is 42."},
		{name: "empty", raw: ""},
		{name: "unknown action", raw: `{"action": "dance", "content": {}}`},
		{name: "message without text", raw: `{"action": "message", "content": {"markdown": true}}`},
		{name: "invoke without input", raw: `{"action": "plugin_invoke", "content": {"plugin": "x"}}`},
		{name: "invoke with scalar input", raw: `{"action": "plugin_invoke", "content": {"plugin": "x", "input": "run"}}`},
		{name: "unbalanced braces", raw: `{"action": "message", "content": {"text": "oops"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Parse(tt.raw)
			require.NotNil(t, d)
			assert.True(t, d.NonCompliant)
			assert.Equal(t, ActionMessage, d.Action)
			require.NotNil(t, d.Message)
			// The raw text is carried through, never dropped.
			assert.Equal(t, tt.raw, d.Message.Text)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringN(1, 200, -1).Draw(t, "text")
		markdown := rapid.Bool().Draw(t, "markdown")

		env := map[string]interface{}{
			"action": "message",
			"content": map[string]interface{}{
				"text":     text,
				"markdown": markdown,
			},
		}
		raw, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		d := Parse(string(raw))
		if d.NonCompliant {
			t.Fatalf("compliant reply flagged non-compliant: %s", raw)
		}
		if d.Message.Text != text {
			t.Fatalf("text mangled: %q != %q", d.Message.Text, text)
		}
		if d.Message.Markdown != markdown {
			t.Fatalf("markdown flag mangled")
		}
	})
}

func TestParseNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.String().Draw(t, "raw")
		d := Parse(raw)
		if d == nil {
			t.Fatalf("Parse returned nil")
		}
		if d.Action == ActionMessage && d.Message == nil {
			t.Fatalf("message decision without content")
		}
		if d.Action == ActionPluginInvoke && d.Invoke == nil {
			t.Fatalf("invoke decision without content")
		}
	})
}

func TestBuildSystemPrompt(t *testing.T) {
	plugins := []*registry.PluginDescriptor{
		{
			ID:          "web-search",
			Description: "Searches the public web.",
			Operations: []registry.OperationSpec{
				{
					Name:        "search",
					Description: "Full text search.",
					Params: map[string]registry.ParamSpec{
						"query": {Type: "string", Required: true, Description: "What to look for."},
					},
					Example: `{"operation": "search", "query": "weather in Lisbon"}`,
				},
			},
		},
		{ID: "notes", Description: "Reads local notes."},
	}

	prompt := BuildSystemPrompt(plugins)

	assert.Contains(t, prompt, "web-search")
	assert.Contains(t, prompt, "Searches the public web.")
	assert.Contains(t, prompt, "search")
	assert.Contains(t, prompt, `input "query" (string, required)`)
	assert.Contains(t, prompt, "notes")
	assert.Contains(t, prompt, `"plugin_invoke"`)

	// Both reply shapes must be spelled out for the model.
	assert.Contains(t, prompt, `"action": "message"`)
	assert.Contains(t, prompt, `"action": "plugin_invoke"`)
}

func TestBuildSystemPromptNoPlugins(t *testing.T) {
	prompt := BuildSystemPrompt(nil)
	assert.Contains(t, prompt, "No plugins are running")
}
