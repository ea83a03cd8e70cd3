// Package colab prepares notebooks for remote hosting: relative image
// links point at the published copy and a leading code cell downloads the
// remaining companion files.
package colab

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/phobologic/nbdoc/internal/fence"
	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
)

// Notice opens every download header cell.
var Notice = []string{
	"##================================================\n",
	"## このセルを最初に実行せよ---Run this cell first.\n",
	"##================================================\n",
}

// JoinURL joins a URL base and slash-separated path elements.
func JoinURL(base string, elems ...string) string {
	p := path.Join(elems...)
	base = strings.TrimRight(base, "/")
	if p == "." || p == "" {
		return base
	}
	return base + "/" + p
}

// Rewrite points the relative image links of every markdown cell of nb at
// base and returns the set of relative asset paths it consumed. Each cell
// is scanned on its own; fence lines and bodies are left as they are.
func Rewrite(nb *notebook.Notebook, doc, base string) (map[string]struct{}, error) {
	consumed := make(map[string]struct{})
	for _, c := range nb.Cells {
		if c.Type != notebook.Markdown {
			continue
		}
		s := fence.NewScanner(doc)
		lines := notebook.SplitLines(c.Text())
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			class, err := s.Next(line)
			if err != nil {
				return nil, err
			}
			if class != fence.ProseLine {
				out = append(out, line)
				continue
			}
			rewritten, used := inline.RewriteImages(line, base)
			for _, u := range used {
				consumed[u] = struct{}{}
			}
			out = append(out, rewritten)
		}
		c.Source = out
	}
	return consumed, nil
}

// Header builds the download cell for the assets of a document directory.
// assets are paths relative to that directory; urlDir is the published
// URL of the directory. Consumed assets are skipped. It returns nil when
// nothing is left to download.
func Header(assets []string, consumed map[string]struct{}, urlDir string) *notebook.Cell {
	var lines []string
	sorted := append([]string(nil), assets...)
	sort.Strings(sorted)
	for _, a := range sorted {
		if _, ok := consumed[path.Clean(a)]; ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("!wget -P %s %s\n", path.Dir(a), JoinURL(urlDir, a)))
	}
	if len(lines) == 0 {
		return nil
	}
	lines[len(lines)-1] = strings.TrimRight(lines[len(lines)-1], "\n")
	return notebook.NewCodeCell(append(append([]string(nil), Notice...), lines...))
}

// IsHeader reports whether c is a download cell.
func IsHeader(c *notebook.Cell) bool {
	return c != nil && c.Type == notebook.Code && len(c.Source) > 0 && c.Source[0] == Notice[0]
}

// Apply installs header as the first cell of nb, replacing an existing
// download cell. A nil header removes any existing one.
func Apply(nb *notebook.Notebook, header *notebook.Cell) {
	cells := nb.Cells
	if len(cells) > 0 && IsHeader(cells[0]) {
		cells = cells[1:]
	}
	if header != nil {
		cells = append([]*notebook.Cell{header}, cells...)
	}
	nb.Cells = cells
}
