package templates

import (
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
)

// Indentation prefixes every normalized help line.
const Indentation = `  `

// LongDesc normalizes a command's long description to follow the conventions.
func LongDesc(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.heredoc().trim().string
}

// Examples normalizes a command's examples to follow the conventions.
func Examples(s string) string {
	if len(s) == 0 {
		return s
	}

	return normalizer{s}.trim().indent().string
}

type normalizer struct {
	string
}

func (s normalizer) heredoc() normalizer {
	s.string = heredoc.Doc(s.string)

	return s
}

func (s normalizer) trim() normalizer {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s.string), "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	s.string = strings.Join(lines, "\n")

	return s
}

func (s normalizer) indent() normalizer {
	var indented []string
	for _, line := range strings.Split(s.string, "\n") {
		if line == "" {
			indented = append(indented, line)
			continue
		}
		indented = append(indented, Indentation+line)
	}
	s.string = strings.Join(indented, "\n")

	return s
}
