// Package sanitize rewrites notebook markdown into the restricted dialect
// accepted by the static-site notebook converter.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/nbdoc/internal/fence"
	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
)

var ruleRe = regexp.MustCompile(`^\s*---`)

// Notebook sanitizes every markdown cell of nb in place. Each cell keeps
// its own fence state.
func Notebook(e *inline.Engine, doc string, nb *notebook.Notebook) error {
	for i, c := range nb.Cells {
		if c.Type != notebook.Markdown {
			continue
		}
		lines, err := Lines(e, doc, notebook.SplitLines(c.Text()))
		if err != nil {
			return fmt.Errorf("cell %d: %w", i+1, err)
		}
		c.Source = lines
	}
	return nil
}

// Lines sanitizes one markdown source. Fence delimiters must open their
// line and lose any language tag; fence bodies are copied as they are;
// prose lines drop horizontal rules and get unique image alt text, plain
// code instead of bold code and marker-free link text.
func Lines(e *inline.Engine, doc string, lines []string) ([]string, error) {
	s := fence.NewScanner(doc)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		class, err := s.Next(line)
		if err != nil {
			return nil, err
		}
		switch class {
		case fence.Delimiter:
			if !strings.HasPrefix(line, fence.Marker) {
				return nil, &fence.MalformedError{
					Document: doc,
					Line:     s.Line(),
					Text:     line,
					Reason:   "code fence marker not at the beginning of the line",
				}
			}
			out = append(out, fence.Marker+lineEnding(line))
		case fence.Body:
			out = append(out, line)
		default:
			clean, err := Prose(e, line)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", doc, s.Line(), err)
			}
			out = append(out, clean)
		}
	}
	return out, nil
}

// Prose sanitizes a single prose line.
func Prose(e *inline.Engine, line string) (string, error) {
	if ruleRe.MatchString(line) {
		return "\n", nil
	}
	line = inline.SanitizeImageAlt(line)
	line, err := e.UnboldCode(line)
	if err != nil {
		return "", err
	}
	return e.SanitizeLinks(line)
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\n") {
		return "\n"
	}
	return ""
}
