package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
	"github.com/phobologic/nbdoc/internal/sanitize"
)

const sanitizeHelp = `Usage: nbdoc sanitize [flags] <source>...

Write copies of the given notebooks (or of every notebook under the given
directories) in the markdown dialect the static-site converter accepts:
fences lose their language tag, horizontal rules are dropped, image alt
text is made unique, bold code becomes plain code and link text loses its
markup. Copies keep their path relative to the root directory below the
destination directory; sources must lie under the root directory.
`

// runSanitize implements the `nbdoc sanitize` subcommand.
func runSanitize(args []string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("sanitize", sanitizeHelp, stderr)
	var root, destDir string
	fs.StringVar(&root, "root", ".", "directory that document paths are relative to")
	fs.StringVar(&destDir, "d", cfg.Sanitize.DestDir, "directory to place output in")

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

	e := inline.New()
	defer e.Close()

	var failed []error
	for _, p := range paths {
		out, err := sanitizeFile(e, p, root, destDir)
		if err != nil {
			logger.Error("skipping document", "path", p, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", p, err))
			continue
		}
		_, _ = fmt.Fprintln(stdout, out)
	}
	return errors.Join(failed...)
}

func sanitizeFile(e *inline.Engine, path, root, destDir string) (string, error) {
	rel, err := relativeTo(root, path)
	if err != nil {
		return "", err
	}

	nb, err := notebook.Load(path)
	if err != nil {
		return "", err
	}
	if err := sanitize.Notebook(e, path, nb); err != nil {
		return "", err
	}
	out := filepath.Join(destDir, rel)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", err
	}
	if err := notebook.Save(out, nb); err != nil {
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, nil
}
