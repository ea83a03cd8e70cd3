// Package termindex builds the index of bold terms across notebooks.
package termindex

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/nbdoc/internal/fence"
	"github.com/phobologic/nbdoc/internal/heading"
	"github.com/phobologic/nbdoc/internal/inline"
)

// DefaultTitle is the heading of the rendered index.
const DefaultTitle = "索引"

// DefaultMaxHeadingLevel is the deepest heading a reference can point at.
const DefaultMaxHeadingLevel = 3

// Ref points at the heading a term was found under.
type Ref struct {
	Document string
	Heading  string
}

// Index maps terms to their references, keeping first-seen term order.
type Index struct {
	refs  map[string][]Ref
	order []string
}

// New returns an empty index.
func New() *Index {
	return &Index{refs: make(map[string][]Ref)}
}

// Add appends a reference for term.
func (ix *Index) Add(term string, ref Ref) {
	if _, ok := ix.refs[term]; !ok {
		ix.order = append(ix.order, term)
	}
	ix.refs[term] = append(ix.refs[term], ref)
}

// Merge appends every reference of other, in other's order.
func (ix *Index) Merge(other *Index) {
	for _, term := range other.order {
		for _, ref := range other.refs[term] {
			ix.Add(term, ref)
		}
	}
}

// Terms returns the terms in first-seen order.
func (ix *Index) Terms() []string {
	return append([]string(nil), ix.order...)
}

// Refs returns the references of term.
func (ix *Index) Refs(term string) []Ref {
	return ix.refs[term]
}

// Len returns the number of distinct terms.
func (ix *Index) Len() int { return len(ix.order) }

// Scan is the result of collecting one document.
type Scan struct {
	Document   string
	Index      *Index
	Duplicates []heading.Duplicate
}

// Collect indexes the bold terms of one document's prose stream. Each term
// refers to the nearest preceding heading no deeper than maxLevel.
func Collect(e *inline.Engine, doc string, lines []string, maxLevel int) (*Scan, error) {
	ix := New()
	tracker := heading.NewTracker(doc, maxLevel)
	err := fence.Walk(doc, lines, func(n int, line string) error {
		if _, _, err := tracker.Observe(n, line); err != nil {
			return err
		}
		terms, err := e.Terms(line)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", doc, n, err)
		}
		for _, term := range terms {
			ix.Add(term, Ref{Document: doc, Heading: tracker.Current()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Scan{Document: doc, Index: ix, Duplicates: tracker.Duplicates()}, nil
}

// RenderOptions controls Render.
type RenderOptions struct {
	Title string
	// BaseDir is the directory the index document is written to; reference
	// links are relative to it.
	BaseDir string
	Keyer   *Keyer
}

// Render produces the markdown lines of the index document, terms sorted by
// their phonetic key.
func (ix *Index) Render(e *inline.Engine, opts RenderOptions) ([]string, error) {
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	keyer := opts.Keyer
	if keyer == nil {
		keyer = NewKeyer(nil)
	}

	terms := ix.Terms()
	keys := make(map[string]string, len(terms))
	for _, term := range terms {
		keys[term] = keyer.Key(term)
	}
	sort.SliceStable(terms, func(i, j int) bool {
		return keys[terms[i]] < keys[terms[j]]
	})

	lines := []string{"# " + title + "\n", "\n"}
	for _, term := range terms {
		links := make([]string, 0, len(ix.refs[term]))
		for _, ref := range ix.refs[term] {
			link, err := refLink(e, opts.BaseDir, ref)
			if err != nil {
				return nil, err
			}
			links = append(links, link)
		}
		lines = append(lines, fmt.Sprintf("- %s %s\n", term, strings.Join(links, ", ")))
	}
	return lines, nil
}

func refLink(e *inline.Engine, baseDir string, ref Ref) (string, error) {
	doc := ref.Document
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, ref.Document); err == nil {
			doc = rel
		}
	}
	doc = filepath.ToSlash(doc)
	name := strings.TrimSuffix(doc, filepath.Ext(doc))

	if ref.Heading == "" {
		return fmt.Sprintf("[%s](%s)", name, doc), nil
	}
	text, err := e.StripStrong(ref.Heading)
	if err != nil {
		return "", err
	}
	slug, err := e.Slug(text)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s#%s](%s#%s)", name, text, doc, slug), nil
}
