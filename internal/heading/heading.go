// Package heading extracts the heading structure of a notebook's prose.
package heading

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/nbdoc/internal/fence"
)

// ErrStructure matches every *StructuralError.
var ErrStructure = errors.New("structural violation")

// StructuralError reports a document without exactly one title.
type StructuralError struct {
	Document string
	Line     int
	Reason   string
}

func (e *StructuralError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Document, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Document, e.Reason)
}

func (e *StructuralError) Is(target error) bool { return target == ErrStructure }

// Heading is one markdown heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Duplicate records a heading text seen more than once in a document.
type Duplicate struct {
	Text string
	Line int
}

var headingRe = regexp.MustCompile(`^(#+)(?:\s|$)`)

// Parse reports the heading a line opens, ignoring level limits.
func Parse(line string) (Heading, bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return Heading{}, false
	}
	return Heading{
		Level: len(m[1]),
		Text:  strings.TrimSpace(strings.TrimLeft(line, "#")),
	}, true
}

// Tracker follows the headings of one document, line by line. Only prose
// lines should be observed.
type Tracker struct {
	doc      string
	maxLevel int
	title    *Heading
	current  string
	seen     map[string]struct{}
	dups     []Duplicate
}

// NewTracker returns a tracker for doc that records headings up to
// maxLevel; maxLevel <= 0 records every level.
func NewTracker(doc string, maxLevel int) *Tracker {
	return &Tracker{doc: doc, maxLevel: maxLevel, seen: make(map[string]struct{})}
}

// Observe inspects prose line n. It returns the heading the line records,
// if any.
func (t *Tracker) Observe(n int, line string) (Heading, bool, error) {
	h, ok := Parse(line)
	if !ok || (t.maxLevel > 0 && h.Level > t.maxLevel) {
		return Heading{}, false, nil
	}
	h.Line = n
	if h.Level == 1 {
		if t.title != nil {
			return Heading{}, false, &StructuralError{
				Document: t.doc,
				Line:     n,
				Reason:   fmt.Sprintf("second top-level heading %q (title is %q)", h.Text, t.title.Text),
			}
		}
		title := h
		t.title = &title
	}
	if _, dup := t.seen[h.Text]; dup {
		t.dups = append(t.dups, Duplicate{Text: h.Text, Line: n})
	} else {
		t.seen[h.Text] = struct{}{}
	}
	t.current = h.Text
	return h, true, nil
}

// Current returns the text of the most recently recorded heading.
func (t *Tracker) Current() string { return t.current }

// Duplicates returns the repeated headings seen so far.
func (t *Tracker) Duplicates() []Duplicate { return t.dups }

// Outline is the heading structure of one document.
type Outline struct {
	Document   string
	Headings   []Heading
	Duplicates []Duplicate
}

// Title returns the document's title, requiring that its first heading be
// the one level-1 heading.
func (o *Outline) Title() (Heading, error) {
	if len(o.Headings) == 0 {
		return Heading{}, &StructuralError{Document: o.Document, Reason: "no top-level heading"}
	}
	first := o.Headings[0]
	if first.Level != 1 {
		return Heading{}, &StructuralError{
			Document: o.Document,
			Line:     first.Line,
			Reason:   fmt.Sprintf("first heading %q is level %d, want a level-1 title", first.Text, first.Level),
		}
	}
	return first, nil
}

// Extract collects the headings of a document's prose stream.
func Extract(doc string, lines []string, maxLevel int) (*Outline, error) {
	t := NewTracker(doc, maxLevel)
	o := &Outline{Document: doc}
	err := fence.Walk(doc, lines, func(n int, line string) error {
		h, ok, err := t.Observe(n, line)
		if err != nil {
			return err
		}
		if ok {
			o.Headings = append(o.Headings, h)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.Duplicates = t.Duplicates()
	return o, nil
}
