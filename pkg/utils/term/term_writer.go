// Package term provides terminal-aware writers for help output.
package term

import (
	"io"

	wordwrap "github.com/mitchellh/go-wordwrap"
	"github.com/moby/term"
)

// TerminalSize represents the width and height of a terminal.
type TerminalSize struct {
	Width  uint16
	Height uint16
}

// GetSize returns the current size of the user's terminal. If it isn't a
// terminal, nil is returned.
func GetSize(w io.Writer) *TerminalSize {
	outFd, isTerminal := term.GetFdInfo(w)
	if !isTerminal {
		return nil
	}

	winsize, err := term.GetWinsize(outFd)
	if err != nil {
		return nil
	}

	return &TerminalSize{Width: winsize.Width, Height: winsize.Height}
}

type wordWrapWriter struct {
	limit  uint
	writer io.Writer
}

// NewResponsiveWriter creates a Writer that detects the column width of the
// terminal we are in, and adjusts every line width to fit and use recommended
// terminal sizes for better readability. Does proper word wrapping and basic
// intelligent hyphenation.
func NewResponsiveWriter(w io.Writer) io.Writer {
	terminalSize := GetSize(w)
	if terminalSize == nil {
		return w
	}

	var limit uint
	switch {
	case terminalSize.Width >= 120:
		limit = 120
	case terminalSize.Width >= 100:
		limit = 100
	case terminalSize.Width >= 80:
		limit = 80
	}

	return NewWordWrapWriter(w, limit)
}

// NewWordWrapWriter is a Writer that supports a limit of characters on every
// line and does auto word wrapping that respects that limit.
func NewWordWrapWriter(w io.Writer, limit uint) io.Writer {
	return &wordWrapWriter{
		limit:  limit,
		writer: w,
	}
}

func (www wordWrapWriter) Write(p []byte) (nn int, err error) {
	if www.limit == 0 {
		return www.writer.Write(p)
	}
	original := string(p)
	wrapped := wordwrap.WrapString(original, www.limit)

	return www.writer.Write([]byte(wrapped))
}
