package main

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/nbdoc/internal/inline"
	"github.com/phobologic/nbdoc/internal/notebook"
)

// extractFunc derives a per-document result from a loaded notebook.
type extractFunc[T any] func(e *inline.Engine, path string, nb *notebook.Notebook) (T, error)

// extractAll runs fn over every notebook concurrently and returns the
// results in path order. Engines hold a tree-sitter parser each, so every
// running task borrows one from a pool sized to the concurrency limit.
// A failing document is logged and reported in the joined error; the
// results of the others are still returned.
func extractAll[T any](logger *slog.Logger, paths []string, fn extractFunc[T]) ([]T, error) {
	workers := min(runtime.GOMAXPROCS(0), len(paths))
	if workers == 0 {
		return nil, nil
	}

	engines := make(chan *inline.Engine, workers)
	for range workers {
		engines <- inline.New()
	}
	defer func() {
		close(engines)
		for e := range engines {
			e.Close()
		}
	}()

	results := make([]T, len(paths))
	errs := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			e := <-engines
			defer func() { engines <- e }()

			nb, err := notebook.Load(path)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = fn(e, path, nb)
			return nil
		})
	}
	_ = g.Wait()

	var failed []error
	var ok []T
	for i, err := range errs {
		if err != nil {
			logger.Error("skipping document", "path", paths[i], "err", err)
			failed = append(failed, fmt.Errorf("%s: %w", paths[i], err))
			continue
		}
		ok = append(ok, results[i])
	}
	return ok, errors.Join(failed...)
}
