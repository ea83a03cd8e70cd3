package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phobologic/nbdoc/internal/heading"
	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
	"github.com/phobologic/nbdoc/internal/toc"
)

const tocHelp = `Usage: nbdoc toc [flags] <source-dir>

Write a table of contents notebook linking every notebook under source-dir
by its title, with its section headings nested below, and a companion
reStructuredText toctree for the static-site build.
`

// runTOC implements the `nbdoc toc` subcommand.
func runTOC(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("toc", tocHelp, stderr)
	var (
		destDir      string
		name         string
		title        string
		preamblePath string
		maxLevel     int
	)
	fs.StringVar(&destDir, "d", "", "directory to write the TOC to (default: source-dir)")
	fs.StringVar(&name, "n", cfg.TOC.Name, "TOC file name, without extension")
	fs.StringVar(&title, "t", cfg.TOC.Title, "TOC title")
	fs.StringVar(&preamblePath, "p", cfg.TOC.Preamble, "file holding markdown placed under the title")
	fs.IntVar(&maxLevel, "l", cfg.TOC.MaxLevel, "deepest heading level listed")

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	source, destDir, err := resolveDirs(fs.Arg(0), destDir)
	if err != nil {
		return err
	}
	logger := newLogger(stderr, cfg.Level())

	var preamble string
	if preamblePath != "" {
		data, err := os.ReadFile(preamblePath)
		if err != nil {
			return fmt.Errorf("reading preamble: %w", err)
		}
		preamble = string(data)
	}

	out := filepath.Join(destDir, name+".ipynb")
	paths, err := collect(logger, []string{source})
	if err != nil {
		return err
	}
	paths = without(paths, out)

	outlines, extractErr := extractAll(logger, paths, func(_ *inline.Engine, path string, nb *notebook.Notebook) (*heading.Outline, error) {
		o, err := heading.Extract(path, nb.MarkdownLines(), 0)
		if err != nil {
			return nil, err
		}
		if _, err := o.Title(); err != nil {
			return nil, err
		}
		return o, nil
	})
	if extractErr != nil {
		return extractErr
	}

	entries := make([]toc.Entry, 0, len(outlines))
	for _, o := range outlines {
		for _, d := range o.Duplicates {
			logger.Warn("duplicate heading", "path", o.Document, "line", d.Line, "heading", d.Text)
		}
		rel, err := filepath.Rel(destDir, o.Document)
		if err != nil {
			return err
		}
		entries = append(entries, toc.Entry{Path: filepath.ToSlash(rel), Outline: o})
	}

	opts := toc.Options{Title: title, Preamble: preamble, MaxLevel: maxLevel}
	lines, err := toc.Markdown(entries, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	if err := notebook.Save(out, notebook.NewMarkdown(lines)); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	rst := filepath.Join(destDir, name+".rst")
	if err := os.WriteFile(rst, []byte(toc.RST(entries, opts)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rst, err)
	}
	logger.Info("wrote table of contents", "path", out, "documents", len(entries))
	_, _ = fmt.Fprintln(stdout, out)
	_, _ = fmt.Fprintln(stdout, rst)
	return nil
}
