package toc

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RST renders the companion toctree for the static-site build: the same
// documents in the same order, depth-limited to the TOC's heading level.
func RST(entries []Entry, opts Options) string {
	title := opts.title()
	width := runewidth.StringWidth(title)
	if width == 0 {
		width = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n", title, strings.Repeat("=", width))
	b.WriteString(opts.Preamble)
	if opts.Preamble != "" && !strings.HasSuffix(opts.Preamble, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n.. toctree::\n   :maxdepth: %d\n   :glob:\n\n", opts.maxLevel())
	for _, e := range entries {
		fmt.Fprintf(&b, "   %s\n", DocName(e.Path))
	}
	return b.String()
}
