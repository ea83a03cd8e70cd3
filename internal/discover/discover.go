// Package discover finds notebooks and their companion assets on disk.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Extension is the notebook file extension.
const Extension = ".ipynb"

// DownloadIgnoreFile names the per-directory list of assets that hosted
// copies must not download.
const DownloadIgnoreFile = ".download_ignore"

// DefaultIgnore are the patterns never treated as assets.
var DefaultIgnore = []string{".*", "*~", "__pycache__"}

var skipDirs = map[string]struct{}{
	"__pycache__":        {},
	".ipynb_checkpoints": {},
	".git":               {},
	"node_modules":       {},
	"venv":               {},
	".venv":              {},
}

// Notebooks returns the notebook files named by sources, sorted by path.
// A directory source is walked recursively, skipping hidden entries and
// paths matched by its .gitignore; a file source is taken as given.
func Notebooks(sources ...string) ([]string, error) {
	seen := make(map[string]struct{})
	var results []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		results = append(results, p)
	}

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(src) != Extension {
				return nil, &NotNotebookError{Path: src}
			}
			add(src)
			continue
		}
		found, err := walkNotebooks(src)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			add(p)
		}
	}

	sort.Strings(results)
	return results, nil
}

// NotNotebookError reports a file source without the notebook extension.
type NotNotebookError struct {
	Path string
}

func (e *NotNotebookError) Error() string {
	return e.Path + ": not a " + Extension + " file"
}

func walkNotebooks(root string) ([]string, error) {
	gi := loadGitignore(root)
	var results []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || filepath.Ext(name) != Extension {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if gi != nil {
			rel, err := filepath.Rel(root, path)
			if err == nil && gi.MatchesPath(filepath.ToSlash(rel)) {
				return nil
			}
		}

		results = append(results, path)
		return nil
	})
	return results, err
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

// Matcher decides which paths below a directory are not assets.
type Matcher struct {
	gi *ignore.GitIgnore
}

// NewMatcher compiles gitignore-style patterns.
func NewMatcher(patterns ...string) *Matcher {
	return &Matcher{gi: ignore.CompileIgnoreLines(patterns...)}
}

// LoadMatcher compiles the default patterns, the notebook extension, extra
// and the download ignore list of dir. A missing list is not an error.
func LoadMatcher(dir string, extra ...string) (*Matcher, error) {
	patterns := append([]string{"*" + Extension}, DefaultIgnore...)
	patterns = append(patterns, extra...)
	data, err := os.ReadFile(filepath.Join(dir, DownloadIgnoreFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		patterns = append(patterns, strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")...)
	}
	return NewMatcher(patterns...), nil
}

// Matches reports whether the slash-separated path rel is ignored.
func (m *Matcher) Matches(rel string, dir bool) bool {
	if m == nil || m.gi == nil {
		return false
	}
	if m.gi.MatchesPath(rel) {
		return true
	}
	return dir && m.gi.MatchesPath(rel+"/")
}

// Assets returns the files under dir that m does not ignore, as sorted
// slash-separated paths relative to dir. Ignored directories are pruned.
func Assets(dir string, m *Matcher) ([]string, error) {
	var results []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.Matches(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 || m.Matches(rel, false) {
			return nil
		}
		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(results)
	return results, nil
}
