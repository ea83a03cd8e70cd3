// Package fence classifies markdown lines as prose or fenced code.
package fence

import (
	"errors"
	"fmt"
	"strings"
)

// Marker delimits a fenced code block.
const Marker = "```"

// ErrMalformed matches every *MalformedError.
var ErrMalformed = errors.New("malformed code fence")

// MalformedError reports a line whose fence structure cannot be determined.
type MalformedError struct {
	Document string
	Line     int // 1-based; 0 when the stream ended inside a fence
	Text     string
	Reason   string
}

func (e *MalformedError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Document, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s: %q", e.Document, e.Line, e.Reason, strings.TrimRight(e.Text, "\n"))
}

func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// State is the fence state between lines.
type State int

const (
	Prose State = iota
	InFence
)

// Class is the classification of a single line.
type Class int

const (
	// ProseLine is ordinary markdown outside any fence.
	ProseLine Class = iota
	// Delimiter is an opening or closing fence line.
	Delimiter
	// Body is a line inside a fence.
	Body
)

// Scanner tracks fence state across the lines of one stream.
type Scanner struct {
	doc   string
	line  int
	state State
}

// NewScanner returns a scanner in the Prose state. doc names the document
// in errors.
func NewScanner(doc string) *Scanner {
	return &Scanner{doc: doc}
}

// State returns the state after the last classified line.
func (s *Scanner) State() State { return s.state }

// Line returns the 1-based number of the last classified line.
func (s *Scanner) Line() int { return s.line }

// Next classifies line and advances the state.
func (s *Scanner) Next(line string) (Class, error) {
	s.line++
	switch strings.Count(line, Marker) {
	case 0:
		if s.state == InFence {
			return Body, nil
		}
		return ProseLine, nil
	case 1:
		if s.state == InFence {
			s.state = Prose
		} else {
			s.state = InFence
		}
		return Delimiter, nil
	default:
		return 0, &MalformedError{
			Document: s.doc,
			Line:     s.line,
			Text:     line,
			Reason:   "code fence marker appears more than once",
		}
	}
}

// Close reports an error if the stream ended inside a fence.
func (s *Scanner) Close() error {
	if s.state == InFence {
		return &MalformedError{Document: s.doc, Reason: "unterminated code fence"}
	}
	return nil
}

// Walk feeds each prose line of a document stream to fn with its 1-based
// line number. Fence delimiters and bodies are skipped. The stream must
// close every fence it opens.
func Walk(doc string, lines []string, fn func(n int, line string) error) error {
	s := NewScanner(doc)
	for _, line := range lines {
		class, err := s.Next(line)
		if err != nil {
			return err
		}
		if class != ProseLine {
			continue
		}
		if err := fn(s.Line(), line); err != nil {
			return err
		}
	}
	return s.Close()
}
