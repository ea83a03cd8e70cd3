package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/phobologic/nbdoc/internal/heading"
	"github.com/phobologic/nbdoc/internal/lint"
	"github.com/phobologic/nbdoc/internal/notebook"
	"github.com/phobologic/nbdoc/internal/render"
)

const checkHelp = `Usage: nbdoc check [flags] <source>...

Report markdown that the notebook converters render badly: raw HTML tags,
lists without a blank line before them, misplaced code fences, code spans
without surrounding space and repeated headings. Style findings are
printed one per line and do not fail the command; a document whose fences
or headings cannot be parsed does.
`

// runCheck implements the `nbdoc check` subcommand.
func runCheck(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("check", checkHelp, stderr)
	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	logger := newLogger(stderr, cfg.Level())

	paths, err := collect(logger, fs.Args())
	if err != nil {
		return err
	}

	r := render.New()
	var (
		failed []error
		count  int
	)
	for _, p := range paths {
		findings, err := checkFile(r, p)
		for _, f := range findings {
			_, _ = fmt.Fprintln(stdout, f)
		}
		count += len(findings)
		if err != nil {
			logger.Error("cannot check document", "path", p, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", p, err))
		}
	}
	logger.Info("checked notebooks", "documents", len(paths), "findings", count)
	return errors.Join(failed...)
}

func checkFile(r *render.Renderer, path string) ([]lint.Finding, error) {
	nb, err := notebook.Load(path)
	if err != nil {
		return nil, err
	}
	lines := nb.MarkdownLines()
	findings, err := lint.Check(r, path, lines)
	if err != nil {
		return findings, err
	}
	outline, err := heading.Extract(path, lines, 0)
	if err != nil {
		return findings, err
	}
	for _, d := range outline.Duplicates {
		findings = append(findings, lint.Finding{
			Document: path,
			Line:     d.Line,
			Rule:     lint.RuleDuplicateHeading,
			Message:  fmt.Sprintf("heading %q appears more than once", d.Text),
		})
	}
	return findings, nil
}
