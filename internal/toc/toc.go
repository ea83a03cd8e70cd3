// Package toc renders the table of contents of a notebook collection.
package toc

import (
	"fmt"
	"path"
	"strings"

	"github.com/phobologic/nbdoc/internal/heading"
	"github.com/phobologic/nbdoc/internal/notebook"
)

const (
	DefaultTitle    = "目次"
	DefaultMaxLevel = 2
)

// Entry is one document of the table of contents.
type Entry struct {
	// Path is the document path relative to the TOC, slash separated.
	Path    string
	Outline *heading.Outline
}

// Options controls rendering.
type Options struct {
	Title    string
	Preamble string
	// MaxLevel is the deepest heading listed under each document.
	MaxLevel int
}

func (o Options) title() string {
	if o.Title == "" {
		return DefaultTitle
	}
	return o.Title
}

func (o Options) maxLevel() int {
	if o.MaxLevel <= 0 {
		return DefaultMaxLevel
	}
	return o.MaxLevel
}

// Markdown renders the TOC document. Entries must already be in output
// order; every entry must open with its level-1 title.
func Markdown(entries []Entry, opts Options) ([]string, error) {
	lines := []string{"# " + opts.title() + "\n"}
	lines = append(lines, notebook.SplitLines(opts.Preamble)...)
	lines = append(lines, "\n")

	for _, e := range entries {
		title, err := e.Outline.Title()
		if err != nil {
			return nil, err
		}
		lines = append(lines, fmt.Sprintf("## [%s](%s)\n", title.Text, e.Path), "\n")
		for _, h := range e.Outline.Headings[1:] {
			if h.Level > opts.maxLevel() {
				continue
			}
			lines = append(lines, strings.Repeat("  ", h.Level-2)+"- "+h.Text+"\n")
		}
		lines = append(lines, "\n")
	}
	return lines, nil
}

// DocName returns the extension-less document name used by the outline.
func DocName(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
