// nbdoc builds the table of contents, term index and derived copies of a
// collection of notebook documents.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/nbdoc/internal/config"
	"github.com/phobologic/nbdoc/internal/discover"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `Usage: nbdoc <command> [flags] [args]

Commands:
  index     build the term index of a notebook directory
  toc       build the table of contents of a notebook directory
  colab     write copies of notebooks prepared for remote hosting
  sanitize  write copies of notebooks for the static-site converter
  check     report markdown style problems
  clean     reset notebook metadata and clear outputs

Run 'nbdoc <command> -h' for the flags of a command.
`

var errUsage = errors.New("invalid usage")

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprint(stderr, usage)
		return errUsage
	}

	var err error
	switch args[0] {
	case "-V", "-version", "--version":
		_, _ = fmt.Fprintf(stdout, "nbdoc %s\n", version)
		return nil
	case "-h", "-help", "--help", "help":
		_, _ = fmt.Fprint(stdout, usage)
		return nil
	case "index":
		err = runIndex(args[1:], stdout, stderr)
	case "toc":
		err = runTOC(args[1:], stdout, stderr)
	case "colab":
		err = runColab(args[1:], stdout, stderr)
	case "sanitize":
		err = runSanitize(args[1:], stdout, stderr)
	case "check":
		err = runCheck(args[1:], stdout, stderr)
	case "clean":
		err = runClean(args[1:], os.Stdin, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return errUsage
	}
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

// newFlagSet returns a flag set for a subcommand with the shared -config
// flag registered.
func newFlagSet(name, help string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("nbdoc "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", "", "config file (default ./"+config.FileName+" if present)")
	fs.Usage = func() {
		_, _ = fmt.Fprint(stderr, help)
		_, _ = fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return fs
}

// loadConfig loads the configuration named by a -config flag in args,
// before the flag set is parsed, so that flag defaults come from it.
func loadConfig(args []string) (*config.Config, error) {
	return config.Load(configPath(args))
}

func configPath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if !strings.HasPrefix(a, "-") {
			continue
		}
		name, val, hasVal := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "config" {
			continue
		}
		if hasVal {
			return val
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// collect resolves notebook sources and logs what it found.
func collect(logger *slog.Logger, sources []string) ([]string, error) {
	paths, err := discover.Notebooks(sources...)
	if err != nil {
		return nil, fmt.Errorf("discovering notebooks: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no notebooks found")
	}
	logger.Debug("discovered notebooks", "count", len(paths))
	return paths, nil
}

// resolveDirs makes the source and destination directories absolute, so
// document paths can be expressed relative to the destination. An empty
// destination means the source.
func resolveDirs(source, dest string) (string, string, error) {
	if dest == "" {
		dest = source
	}
	src, err := filepath.Abs(source)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", source, err)
	}
	dst, err := filepath.Abs(dest)
	if err != nil {
		return "", "", fmt.Errorf("resolving %s: %w", dest, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return "", "", fmt.Errorf("source path: %w", err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%s: not a directory", source)
	}
	return src, dst, nil
}

// relativeTo returns path relative to root, rejecting paths outside it.
func relativeTo(root, path string) (string, error) {
	r, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	p, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: not under %s", path, root)
	}
	return rel, nil
}

// within reports whether path lies inside dir.
func within(path, dir string) bool {
	_, err := relativeTo(dir, path)
	return err == nil
}

// without drops the notebook at skip from paths, so generated documents are
// never read back as sources.
func without(paths []string, skip string) []string {
	abs, err := filepath.Abs(skip)
	if err != nil {
		return paths
	}
	var out []string
	for _, p := range paths {
		if a, err := filepath.Abs(p); err == nil && a == abs {
			continue
		}
		out = append(out, p)
	}
	return out
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 1 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if takesValue(fs, args[i]) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// takesValue reports whether arg names a flag of fs that consumes the next
// argument.
func takesValue(fs *flag.FlagSet, arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	f := fs.Lookup(name)
	if f == nil {
		return false
	}
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return false
	}
	return true
}
