package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phobologic/nbdoc/internal/colab"
	"github.com/phobologic/nbdoc/internal/discover"
	"github.com/phobologic/nbdoc/internal/notebook"
)

const colabHelp = `Usage: nbdoc colab [flags] <source>...

Write copies of the given notebooks (or of every notebook under the given
directories) for remote hosting. Relative image links are pointed at the
published copy under url-base, companion files are mirrored into the
public directory, and a first code cell downloads the files no image link
refers to. Files listed in a directory's .download_ignore are not
downloaded. Sources must lie under the root directory.
`

// runColab implements the `nbdoc colab` subcommand.
func runColab(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("colab", colabHelp, stderr)
	var (
		root      string
		publicDir string
		destDir   string
		urlBase   string
	)
	fs.StringVar(&root, "root", ".", "directory that document paths are relative to")
	fs.StringVar(&publicDir, "p", cfg.Colab.PublicDir, "directory to mirror companion files into")
	fs.StringVar(&destDir, "d", cfg.Colab.DestDir, "directory to write hosted notebooks to")
	fs.StringVar(&urlBase, "b", cfg.Colab.URLBase, "URL the public directory is served at")

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	logger := newLogger(stderr, cfg.Level())

	root, err = filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	paths, err := collect(logger, fs.Args())
	if err != nil {
		return err
	}

	h := &colabizer{
		root:      root,
		publicDir: publicDir,
		destDir:   destDir,
		urlBase:   urlBase,
		mirrored:  make(map[string]struct{}),
		logger:    logger,
	}
	var failed []error
	for _, p := range paths {
		if within(p, destDir) || within(p, publicDir) {
			continue
		}
		out, err := h.document(p)
		if err != nil {
			logger.Error("skipping document", "path", p, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", p, err))
			continue
		}
		_, _ = fmt.Fprintln(stdout, out)
	}
	return errors.Join(failed...)
}

type colabizer struct {
	root      string
	publicDir string
	destDir   string
	urlBase   string
	mirrored  map[string]struct{}
	logger    *slog.Logger
}

// document writes the hosted copy of the notebook at path and returns the
// output path.
func (h *colabizer) document(path string) (string, error) {
	rel, err := relativeTo(h.root, path)
	if err != nil {
		return "", err
	}
	abs := filepath.Join(h.root, rel)
	srcDir := filepath.Dir(abs)
	relDir := filepath.Dir(rel)

	exclude := h.outputsUnder(srcDir)
	if _, ok := h.mirrored[srcDir]; !ok {
		copied, err := colab.Mirror(srcDir, filepath.Join(h.publicDir, relDir), exclude...)
		if err != nil {
			return "", err
		}
		h.mirrored[srcDir] = struct{}{}
		h.logger.Debug("mirrored companion files", "dir", relDir, "count", len(copied))
	}

	nb, err := notebook.Load(abs)
	if err != nil {
		return "", err
	}
	base := colab.JoinURL(h.urlBase, filepath.ToSlash(relDir))
	consumed, err := colab.Rewrite(nb, path, base)
	if err != nil {
		return "", err
	}

	m, err := discover.LoadMatcher(srcDir, exclude...)
	if err != nil {
		return "", err
	}
	assets, err := discover.Assets(srcDir, m)
	if err != nil {
		return "", err
	}
	colab.Apply(nb, colab.Header(assets, consumed, base))

	out := filepath.Join(h.destDir, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	if err := notebook.Save(out, nb); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, nil
}

// outputsUnder returns anchored ignore patterns for the output directories
// that lie inside dir, so generated files are never taken for assets.
func (h *colabizer) outputsUnder(dir string) []string {
	var patterns []string
	for _, out := range []string{h.publicDir, h.destDir} {
		rel, err := relativeTo(dir, out)
		if err != nil || rel == "." {
			continue
		}
		patterns = append(patterns, "/"+filepath.ToSlash(rel)+"/")
	}
	return patterns
}
