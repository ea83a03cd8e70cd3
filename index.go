package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
	"github.com/phobologic/nbdoc/internal/termindex"
)

const indexHelp = `Usage: nbdoc index [flags] <source-dir>

Collect the bold terms of every notebook under source-dir and write a
single-cell notebook listing them in reading order, each linked to the
heading it appears under.
`

// runIndex implements the `nbdoc index` subcommand.
func runIndex(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("index", indexHelp, stderr)
	var (
		destDir  string
		name     string
		title    string
		dictPath string
		maxLevel int
	)
	fs.StringVar(&destDir, "d", "", "directory to write the index to (default: source-dir)")
	fs.StringVar(&name, "n", cfg.Index.Name, "index file name, without extension")
	fs.StringVar(&title, "t", cfg.Index.Title, "index title")
	fs.StringVar(&dictPath, "y", cfg.Index.Dictionary, "JSON dictionary of term readings")
	fs.IntVar(&maxLevel, "l", cfg.Index.MaxLevel, "deepest heading level a term can refer to")

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

	dict, err := termindex.LoadDictionary(dictPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("reading dictionary missing, sorting by spelling", "path", dictPath)
	case err != nil:
		return fmt.Errorf("loading dictionary: %w", err)
	}

	out := filepath.Join(destDir, name+".ipynb")
	paths, err := collect(logger, []string{source})
	if err != nil {
		return err
	}
	paths = without(paths, out)

	scans, extractErr := extractAll(logger, paths, func(e *inline.Engine, path string, nb *notebook.Notebook) (*termindex.Scan, error) {
		return termindex.Collect(e, path, nb.MarkdownLines(), maxLevel)
	})
	if extractErr != nil {
		return extractErr
	}

	ix := termindex.New()
	for _, s := range scans {
		for _, d := range s.Duplicates {
			logger.Warn("duplicate heading", "path", s.Document, "line", d.Line, "heading", d.Text)
		}
		ix.Merge(s.Index)
	}

	e := inline.New()
	defer e.Close()
	lines, err := ix.Render(e, termindex.RenderOptions{
		Title:   title,
		BaseDir: destDir,
		Keyer:   termindex.NewKeyer(dict),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	if err := notebook.Save(out, notebook.NewMarkdown(lines)); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	logger.Info("wrote index", "path", out, "terms", ix.Len(), "documents", len(paths))
	_, _ = fmt.Fprintln(stdout, out)
	return nil
}
