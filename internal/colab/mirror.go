package colab

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/phobologic/nbdoc/internal/discover"
)

// Mirror copies the non-notebook files of srcDir into dstDir, keeping the
// directory layout and skipping the default ignore patterns and exclude.
// It returns the copied paths relative to srcDir.
func Mirror(srcDir, dstDir string, exclude ...string) ([]string, error) {
	patterns := append([]string{"*" + discover.Extension}, discover.DefaultIgnore...)
	m := discover.NewMatcher(append(patterns, exclude...)...)
	assets, err := discover.Assets(srcDir, m)
	if err != nil {
		return nil, err
	}
	for _, rel := range assets {
		from := filepath.Join(srcDir, filepath.FromSlash(rel))
		to := filepath.Join(dstDir, filepath.FromSlash(rel))
		if err := copyFile(from, to); err != nil {
			return nil, fmt.Errorf("mirroring %s: %w", from, err)
		}
	}
	return assets, nil
}

func copyFile(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	in, err := os.Open(from)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(to)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
