package protocol

import (
	"regexp"
	"strings"

	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/pkg/logger"
	"github.com/libreassistant/poco/pkg/utils/json"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse turns one model reply into a Decision. Recovery runs in order: the
// whole reply as JSON, every fenced code block, then every balanced object
// found by brace scanning. Each candidate is schema validated; the first one
// that validates wins. A reply that defeats all three strategies comes back
// as a non-compliant message carrying the raw text, never as a silent drop.
func Parse(raw string) *Decision {
	trimmed := strings.TrimSpace(raw)

	if d := tryDecode(trimmed); d != nil {
		d.Raw = raw
		return d
	}

	for _, block := range fencedBlocks(trimmed) {
		if d := tryDecode(block); d != nil {
			d.Raw = raw
			return d
		}
	}

	for _, cand := range balancedObjects(trimmed) {
		if d := tryDecode(cand); d != nil {
			d.Raw = raw
			return d
		}
	}

	logger.WarnX("protocol", "%v: model reply defeated every parse strategy, passing through as text", errno.ErrProtocolNonCompliant)

	return &Decision{
		Action:       ActionMessage,
		Message:      &MessageContent{Text: raw},
		NonCompliant: true,
		Raw:          raw,
	}
}

// tryDecode decodes one candidate and validates it against the reply schema.
// It returns nil for anything short of a fully valid reply.
func tryDecode(s string) *Decision {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil
	}

	switch env.Action {
	case string(ActionMessage):
		text, ok := env.Content["text"].(string)
		if !ok || text == "" {
			return nil
		}
		markdown, _ := env.Content["markdown"].(bool)
		return &Decision{
			Action:  ActionMessage,
			Message: &MessageContent{Text: text, Markdown: markdown},
		}
	case string(ActionPluginInvoke):
		plugin, ok := env.Content["plugin"].(string)
		if !ok || plugin == "" {
			return nil
		}
		input, ok := env.Content["input"].(map[string]interface{})
		if !ok {
			return nil
		}
		reason, _ := env.Content["reason"].(string)
		return &Decision{
			Action: ActionPluginInvoke,
			Invoke: &InvokeContent{Plugin: plugin, Input: input, Reason: reason},
		}
	default:
		return nil
	}
}

// fencedBlocks extracts the contents of every ``` fenced block, with or
// without a json language tag.
func fencedBlocks(s string) []string {
	matches := fencePattern.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}

	return out
}

// balancedObjects returns every substring that forms a balanced JSON object,
// one candidate per opening brace, respecting strings and escapes.
func balancedObjects(s string) []string {
	var out []string
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		if end := matchBrace(s, i); end > i {
			out = append(out, s[i:end+1])
		}
	}

	return out
}

// matchBrace returns the index of the brace closing the object opened at
// start, or -1 when the object never closes.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
