// Package lint reports markdown style problems that the notebook
// converters render badly. Findings are advisory.
package lint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/nbdoc/internal/fence"
	"github.com/phobologic/nbdoc/internal/render"
)

// Rule identifies a style check.
type Rule string

const (
	RuleHTMLTag     Rule = "html-tag"
	RuleListSpacing Rule = "list-spacing"
	RuleFenceIndent Rule = "fence-position"
	RuleCodeSpacing Rule = "code-spacing"

	// RuleDuplicateHeading is reported by callers that also extract the
	// heading outline.
	RuleDuplicateHeading Rule = "duplicate-heading"
)

// Finding is one style problem.
type Finding struct {
	Document string
	Line     int
	Rule     Rule
	Message  string
	Text     string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s:%d: %s: %s", f.Document, f.Line, f.Rule, f.Message)
}

var (
	tagRe = regexp.MustCompile(`<[a-zA-Z]+>`)

	codeRes = []*regexp.Regexp{
		regexp.MustCompile("\\*\\*`(.*?)`\\*\\*"),
		regexp.MustCompile("<strong>`(.*?)`</strong>"),
		regexp.MustCompile("`(.*?)`"),
	}

	// Characters allowed right before and right after a code span.
	openers = []string{" ", "　", "。", "、", "）", ")", "（", "(", "・", "：", "「", "#", "["}
	closers = []string{" ", "\n", "。", "、", "（", "）", ")", ",", "・", "」", "]"}
)

// Check lints a document's prose stream: the markdown cell lines in order.
func Check(r *render.Renderer, doc string, lines []string) ([]Finding, error) {
	var (
		findings  []Finding
		afterGap  = true
		afterItem = false
	)
	add := func(n int, rule Rule, text, msg string) {
		findings = append(findings, Finding{Document: doc, Line: n, Rule: rule, Message: msg, Text: text})
	}

	s := fence.NewScanner(doc)
	for _, line := range lines {
		class, err := s.Next(line)
		if err != nil {
			return findings, err
		}
		n := s.Line()
		if class == fence.Delimiter && !strings.HasPrefix(line, fence.Marker) {
			add(n, RuleFenceIndent, line, "code fence marker not at the beginning of the line")
		}
		if class != fence.ProseLine {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}

		if tag := tagRe.FindString(line); tag != "" && tag != "<strong>" {
			add(n, RuleHTMLTag, line, tag+" tag in markdown")
		}

		if strings.TrimSpace(line) == "" {
			afterGap, afterItem = true, false
		} else {
			block, err := r.Block(line)
			if err != nil {
				return findings, fmt.Errorf("%s:%d: %w", doc, n, err)
			}
			isList := block == "ul" || block == "ol"
			if isList && !afterGap && !afterItem {
				add(n, RuleListSpacing, line, "no blank line before list")
			}
			afterGap = false
			afterItem = afterItem || isList
		}

		if !codeSpaced(line) {
			add(n, RuleCodeSpacing, line, "inappropriate spacing around code")
		}
	}
	if err := s.Close(); err != nil {
		return findings, err
	}
	return findings, nil
}

// codeSpaced reports whether every code span of line is delimited by
// characters that the line-breaking rules for Japanese text allow.
func codeSpaced(line string) bool {
	seen := make(map[string]struct{})
	for _, re := range codeRes {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if _, ok := seen[m[1]]; ok {
				continue
			}
			seen[m[1]] = struct{}{}
			if !spaced(line, m[0]) {
				return false
			}
		}
	}
	return true
}

func spaced(line, span string) bool {
	for _, c := range closers {
		if strings.HasPrefix(line, span+c) {
			return true
		}
	}
	for _, o := range openers {
		for _, c := range closers {
			if strings.Contains(line, o+span+c) {
				return true
			}
		}
	}
	return false
}
