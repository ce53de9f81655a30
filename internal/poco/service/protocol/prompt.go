package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/libreassistant/poco/internal/poco/service/registry"
)

const promptContract = `You are the orchestration layer of a local assistant. You never call plugins
yourself; you answer with exactly one JSON object and nothing else.

To answer the user directly:
{"action": "message", "content": {"text": "<answer>", "markdown": <true|false>}}

To request one plugin call:
{"action": "plugin_invoke", "content": {"plugin": "<plugin id>", "input": {<operation input>}, "reason": "<why this call is needed>"}}

Rules:
- Use "plugin_invoke" only with a plugin id from the catalog below.
- Put the operation name into the "operation" field of "input" when the
  plugin lists more than one operation.
- After a plugin result arrives you decide again: answer, or call the next
  plugin.
- Never repeat the exact same plugin call twice in a row.
- When no plugin fits, answer directly with "message".`

// BuildSystemPrompt renders the orchestration contract followed by a catalog
// of the plugins currently available for invocation.
func BuildSystemPrompt(plugins []*registry.PluginDescriptor) string {
	var b strings.Builder
	b.WriteString(promptContract)
	b.WriteString("\n\n")

	if len(plugins) == 0 {
		b.WriteString("No plugins are running right now. Always answer with the \"message\" action.\n")
		return b.String()
	}

	b.WriteString("Available plugins:\n")
	for _, d := range plugins {
		fmt.Fprintf(&b, "\n- id: %s\n  description: %s\n", d.ID, d.Description)

		if len(d.Operations) > 0 {
			b.WriteString("  operations:\n")
			for _, op := range d.Operations {
				fmt.Fprintf(&b, "    - %s", op.Name)
				if op.Description != "" {
					fmt.Fprintf(&b, ": %s", op.Description)
				}
				b.WriteString("\n")
				for _, name := range sortedParamNames(op.Params) {
					p := op.Params[name]
					req := ""
					if p.Required {
						req = ", required"
					}
					fmt.Fprintf(&b, "      input %q (%s%s)", name, p.Type, req)
					if p.Description != "" {
						fmt.Fprintf(&b, ": %s", p.Description)
					}
					b.WriteString("\n")
				}
				if op.Example != "" {
					fmt.Fprintf(&b, "      example: %s\n", op.Example)
				}
			}
		}
	}

	return b.String()
}

func sortedParamNames(params map[string]registry.ParamSpec) []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
