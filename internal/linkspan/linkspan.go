// Package linkspan locates inline links in a markdown line by byte offset
// using the tree-sitter markdown inline grammar.
package linkspan

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	mdinline "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown-inline"
)

// Link is one inline link `[text](dest)` of a line.
type Link struct {
	Start, End int // byte range of the whole link
	Text       string
	Dest       string
}

// Locator wraps a tree-sitter parser. A parser is not thread-safe, so each
// goroutine must use its own Locator.
type Locator struct {
	parser *sitter.Parser
}

// NewLocator creates a locator for the markdown inline grammar.
func NewLocator() *Locator {
	p := sitter.NewParser()
	p.SetLanguage(mdinline.GetLanguage())
	return &Locator{parser: p}
}

// Links returns the inline links of line in source order. Links inside code
// spans are not reported. A line the grammar cannot parse yields no links.
func (l *Locator) Links(line string) []Link {
	if line == "" {
		return nil
	}
	source := []byte(line)
	tree, err := l.parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	var links []Link
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Type() != "inline_link" {
			return true
		}
		link := Link{Start: int(n.StartByte()), End: int(n.EndByte())}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			switch child.Type() {
			case "link_text":
				link.Text = nodeText(child, source)
			case "link_destination":
				link.Dest = nodeText(child, source)
			}
		}
		links = append(links, link)
		return false
	})
	return links
}

// Close releases the parser.
func (l *Locator) Close() {
	if l.parser != nil {
		l.parser.Close()
	}
}

func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}

func nodeText(node *sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}
