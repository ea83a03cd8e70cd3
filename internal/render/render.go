// Package render is the markdown disambiguation oracle: a line of markdown
// goes through a real markdown-to-HTML renderer and the structural tags of
// the result are read back.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"golang.org/x/net/html"
)

// Renderer holds the renderer configuration for one scanning session.
// gomarkdown parsers are single use, so each call builds a fresh one from
// this configuration; a Renderer itself has no per-call state.
type Renderer struct {
	extensions parser.Extensions
	flags      mdhtml.Flags
}

// New returns a renderer configured like a plain markdown converter: no
// smart punctuation and no intra-word emphasis restrictions, so rendered
// text maps back onto the source line.
func New() *Renderer {
	return &Renderer{
		extensions: parser.FencedCode | parser.Strikethrough | parser.SpaceHeadings,
		flags:      mdhtml.FlagsNone,
	}
}

// HTML renders md.
func (r *Renderer) HTML(md string) []byte {
	p := parser.NewWithExtensions(r.extensions)
	hr := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: r.flags})
	return markdown.ToHTML([]byte(md), p, hr)
}

// Document renders md and parses the HTML for querying.
func (r *Renderer) Document(md string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.HTML(md)))
	if err != nil {
		return nil, fmt.Errorf("reading rendered markdown: %w", err)
	}
	return doc, nil
}

// Span is a rendered inline element mapped back to markdown.
type Span struct {
	// Markdown is the content with code as backticks, bold as ** and
	// emphasis as *.
	Markdown string
	// Plain is the content with every marker removed.
	Plain string
}

// Strong is a bold span.
type Strong struct {
	Span
	// Emphasis is set when the bold span is also italic as a whole
	// (***x***).
	Emphasis bool
	// CodeOnly is set when the bold span holds exactly one code span.
	CodeOnly bool
	// Code is the text of that code span when CodeOnly is set.
	Code string
}

// Strongs returns the bold spans of md in document order.
func (r *Renderer) Strongs(md string) ([]Strong, error) {
	doc, err := r.Document(md)
	if err != nil {
		return nil, err
	}
	var out []Strong
	doc.Find("strong").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		st := Strong{Span: spanOf(n), Emphasis: wholeEmphasis(n)}
		if only := soleElement(n); only != nil && only.Data == "code" {
			st.CodeOnly = true
			st.Code = textOf(only)
		}
		out = append(out, st)
	})
	return out, nil
}

// Anchor is a rendered hyperlink.
type Anchor struct {
	Span
	Href string
	// Marked is set when the link text contains code or bold.
	Marked bool
}

// Anchors returns the hyperlinks of md in document order.
func (r *Renderer) Anchors(md string) ([]Anchor, error) {
	doc, err := r.Document(md)
	if err != nil {
		return nil, err
	}
	var out []Anchor
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		out = append(out, Anchor{
			Span:   spanOf(s.Get(0)),
			Href:   href,
			Marked: s.Find("code, strong").Length() > 0,
		})
	})
	return out, nil
}

// Codes returns the text of every code span of md.
func (r *Renderer) Codes(md string) ([]string, error) {
	doc, err := r.Document(md)
	if err != nil {
		return nil, err
	}
	var out []string
	doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out, nil
}

// Block reports the tag name of the first block element md renders to,
// e.g. "p", "ul" or "h2".
func (r *Renderer) Block(md string) (string, error) {
	doc, err := r.Document(md)
	if err != nil {
		return "", err
	}
	body := doc.Find("body").Get(0)
	if body == nil {
		return "", nil
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c.Data, nil
		}
	}
	return "", nil
}

func spanOf(n *html.Node) Span {
	var md, plain strings.Builder
	writeMarkup(&md, n, true)
	writeMarkup(&plain, n, false)
	return Span{Markdown: md.String(), Plain: plain.String()}
}

var delimiters = map[string]string{
	"code":   "`",
	"strong": "**",
	"b":      "**",
	"em":     "*",
	"i":      "*",
}

func writeMarkup(b *strings.Builder, n *html.Node, marked bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			delim := ""
			if marked {
				delim = delimiters[c.Data]
			}
			b.WriteString(delim)
			writeMarkup(b, c, marked && c.Data != "code")
			b.WriteString(delim)
		}
	}
}

func textOf(n *html.Node) string {
	var b strings.Builder
	writeMarkup(&b, n, false)
	return b.String()
}

// soleElement returns the only child of n when that child is an element and
// no non-blank text surrounds it.
func soleElement(n *html.Node) *html.Node {
	var only *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		case html.ElementNode:
			if only != nil {
				return nil
			}
			only = c
		}
	}
	return only
}

// wholeEmphasis reports whether a strong node is entirely italic, either
// wrapping a single em or being the single child of one.
func wholeEmphasis(n *html.Node) bool {
	if only := soleElement(n); only != nil && (only.Data == "em" || only.Data == "i") {
		return true
	}
	if p := n.Parent; p != nil && (p.Data == "em" || p.Data == "i") && soleElement(p) == n {
		return true
	}
	return false
}
