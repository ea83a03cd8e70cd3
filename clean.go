package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/phobologic/nbdoc/internal/cleaner"
	"github.com/phobologic/nbdoc/internal/notebook"
)

const cleanHelp = `Usage: nbdoc clean [flags] <source>...

Reset the metadata of the given notebooks (or of every notebook under the
given directories) to the common kernel description, drop cell metadata
except preserved keys and clear code cell outputs. Notebooks are rewritten
in place. With -i, every other metadata item is confirmed interactively.
`

// runClean implements the `nbdoc clean` subcommand.
func runClean(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	fs := newFlagSet("clean", cleanHelp, stderr)
	var (
		interactive bool
		extra       string
	)
	fs.BoolVar(&interactive, "i", false, "ask before removing each unlisted metadata item")
	fs.StringVar(&extra, "p", "", "comma-separated metadata keys to preserve in addition to the configured ones")

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	logger := newLogger(stderr, cfg.Level())

	preserved := append([]string{}, cfg.Clean.Preserved...)
	for _, k := range strings.Split(extra, ",") {
		if k = strings.TrimSpace(k); k != "" {
			preserved = append(preserved, k)
		}
	}

	opts := cleaner.Options{Preserved: preserved}
	if interactive {
		opts.Decide = prompter(bufio.NewReader(stdin), stdout)
	}

	paths, err := collect(logger, fs.Args())
	if err != nil {
		return err
	}

	var failed []error
	for _, p := range paths {
		if err := cleanFile(logger, p, opts); err != nil {
			logger.Error("skipping document", "path", p, "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", p, err))
			continue
		}
		_, _ = fmt.Fprintln(stdout, p)
	}
	return errors.Join(failed...)
}

func cleanFile(logger *slog.Logger, path string, opts cleaner.Options) error {
	nb, err := notebook.Load(path)
	if err != nil {
		return err
	}
	decide := opts.Decide
	if decide != nil {
		opts.Decide = func(key string, value any, where string) bool {
			return decide(key, value, path+" "+where)
		}
	}
	for _, c := range cleaner.Clean(nb, opts) {
		logger.Info("metadata "+c.Action.String(), "path", path, "where", c.Where, "key", c.Key, "value", c.Value)
	}
	return notebook.Save(path, nb)
}

// prompter returns a decision function that asks on w whether to remove
// each item and reads y/n answers from r. Items are kept once input ends.
func prompter(r *bufio.Reader, w io.Writer) cleaner.DecideFunc {
	return func(key string, value any, where string) bool {
		for {
			_, _ = fmt.Fprintf(w, "%s: metadata item %q: %v\nRemove this item? [y/n]: ", where, key, value)
			answer, err := r.ReadString('\n')
			answer = strings.TrimSpace(answer)
			if answer != "" {
				switch strings.ToLower(answer[:1]) {
				case "y":
					return false
				case "n":
					return true
				}
				_, _ = fmt.Fprintf(w, "%q is not a valid answer.\n", answer)
			}
			if err != nil {
				return true
			}
		}
	}
}
