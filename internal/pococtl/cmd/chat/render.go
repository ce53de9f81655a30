package chat

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/libreassistant/poco/pkg/utils/term"
)

// renderMarkdown renders content for terminal display. When out is not a
// terminal, or the renderer fails, the raw content is returned unchanged.
func renderMarkdown(out io.Writer, content string) string {
	size := term.GetSize(out)
	if size == nil {
		return content
	}

	width := int(size.Width) - 4
	if width <= 0 {
		width = 76
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}
