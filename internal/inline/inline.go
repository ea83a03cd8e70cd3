// Package inline extracts and rewrites inline markdown patterns (images,
// bold terms, code spans and link text) one prose line at a time.
package inline

import (
	"path"
	"regexp"
	"strings"

	"github.com/phobologic/nbdoc/internal/linkspan"
	"github.com/phobologic/nbdoc/internal/render"
)

var (
	imageRe      = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	schemeRe     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)
	whitespaceRe = regexp.MustCompile(`[\s\pZ]+`)
)

// Engine is the per-session handle for inline operations. It owns a
// tree-sitter parser, so it must not be shared between goroutines.
type Engine struct {
	r     *render.Renderer
	links *linkspan.Locator
}

// New creates an engine with its own renderer and link locator.
func New() *Engine {
	return &Engine{r: render.New(), links: linkspan.NewLocator()}
}

// Close releases the engine's parser.
func (e *Engine) Close() {
	e.links.Close()
}

// Renderer returns the engine's markdown oracle.
func (e *Engine) Renderer() *render.Renderer {
	return e.r
}

// IsAbsolute reports whether target carries a URL scheme or is
// protocol-relative.
func IsAbsolute(target string) bool {
	return schemeRe.MatchString(target) || strings.HasPrefix(target, "//")
}

// RewriteImages points every relative image target of line at base and
// returns the rewritten line with the cleaned relative paths it consumed.
// Absolute targets are left alone, so rewriting twice is a no-op.
func RewriteImages(line, base string) (string, []string) {
	base = strings.TrimRight(base, "/")
	var consumed []string
	out := imageRe.ReplaceAllStringFunc(line, func(m string) string {
		sub := imageRe.FindStringSubmatch(m)
		alt, target := sub[1], sub[2]
		if IsAbsolute(target) {
			return m
		}
		consumed = append(consumed, path.Clean(target))
		return "![" + alt + "](" + base + "/" + target + ")"
	})
	return out, consumed
}

// SanitizeImageAlt replaces the alt text of every image with a form derived
// from its target, so that no two distinct images share alt text.
func SanitizeImageAlt(line string) string {
	return imageRe.ReplaceAllStringFunc(line, func(m string) string {
		target := imageRe.FindStringSubmatch(m)[2]
		alt := strings.ReplaceAll(target, "-", "--")
		alt = strings.ReplaceAll(alt, "_", "-")
		return "![" + alt + "](" + target + ")"
	})
}

// Terms returns the indexable bold terms of line. Bold spans that are
// italic as a whole are not terms; code keeps its backticks and a trailing
// call suffix is dropped.
func (e *Engine) Terms(line string) ([]string, error) {
	strongs, err := e.r.Strongs(line)
	if err != nil {
		return nil, err
	}
	var terms []string
	for _, s := range strongs {
		if s.Emphasis {
			continue
		}
		if term := TrimCall(s.Markdown); term != "" {
			terms = append(terms, term)
		}
	}
	return terms, nil
}

// TrimCall strips an empty call suffix, either bare (f()) or just inside
// a closing backtick (`f()`).
func TrimCall(term string) string {
	switch {
	case strings.HasSuffix(term, "()`") && len(term) > len("`()`"):
		return strings.TrimSuffix(term, "()`") + "`"
	case strings.HasSuffix(term, "()") && len(term) > len("()"):
		return strings.TrimSuffix(term, "()")
	}
	return term
}

// UnboldCode turns bold code (**`x`**) into plain code.
func (e *Engine) UnboldCode(line string) (string, error) {
	strongs, err := e.r.Strongs(line)
	if err != nil {
		return "", err
	}
	for _, s := range strongs {
		if !s.CodeOnly {
			continue
		}
		code := "`" + s.Code + "`"
		line = strings.ReplaceAll(line, "**"+code+"**", code)
		line = strings.ReplaceAll(line, "<strong>"+code+"</strong>", code)
	}
	return line, nil
}

// StripStrong removes bold markers from text, keeping code backticks.
func (e *Engine) StripStrong(text string) (string, error) {
	strongs, err := e.r.Strongs(text)
	if err != nil {
		return "", err
	}
	for _, s := range strongs {
		text = strings.ReplaceAll(text, "**"+s.Markdown+"**", s.Markdown)
		text = strings.ReplaceAll(text, "<strong>"+s.Markdown+"</strong>", s.Markdown)
	}
	return text, nil
}

// Slug returns the anchor the document renderer assigns to a heading: bold
// and code markers dropped, surrounding space trimmed and every whitespace
// run replaced by a single hyphen.
func (e *Engine) Slug(heading string) (string, error) {
	text, err := e.StripStrong(heading)
	if err != nil {
		return "", err
	}
	codes, err := e.r.Codes(text)
	if err != nil {
		return "", err
	}
	for _, c := range codes {
		text = strings.ReplaceAll(text, "`"+c+"`", c)
	}
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(text), "-"), nil
}

// SanitizeLinks rewrites the text of every link that contains code or bold
// to its marker-free form, with backslashes removed. Each rewrite is
// anchored at the byte offset of the link it came from.
func (e *Engine) SanitizeLinks(line string) (string, error) {
	anchors, err := e.r.Anchors(line)
	if err != nil {
		return "", err
	}

	type edit struct {
		start, end int
		repl       string
	}
	var (
		edits  []edit
		links  []linkspan.Link
		loaded bool
		cursor int
	)
	for _, a := range anchors {
		if !a.Marked {
			continue
		}
		if !loaded {
			links = e.links.Links(line)
			loaded = true
		}
		want := "[" + a.Markdown + "](" + a.Href + ")"
		start, ok := locate(line, links, want, cursor)
		if !ok {
			continue
		}
		text := strings.ReplaceAll(a.Plain, `\`, "")
		edits = append(edits, edit{start: start, end: start + len(want), repl: "[" + text + "](" + a.Href + ")"})
		cursor = start + len(want)
	}
	if len(edits) == 0 {
		return line, nil
	}

	var b strings.Builder
	prev := 0
	for _, ed := range edits {
		b.WriteString(line[prev:ed.start])
		b.WriteString(ed.repl)
		prev = ed.end
	}
	b.WriteString(line[prev:])
	return b.String(), nil
}

// locate finds want at or after from. A parsed link span is preferred;
// plain search covers links the grammar reads differently.
func locate(line string, links []linkspan.Link, want string, from int) (int, bool) {
	for _, l := range links {
		if l.Start >= from && l.End <= len(line) && line[l.Start:l.End] == want {
			return l.Start, true
		}
	}
	i := strings.Index(line[from:], want)
	if i < 0 {
		return 0, false
	}
	return from + i, true
}
