package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Export writes a file named name into dir, creating dir if needed, and
// returns its path. A failed write removes the partial file.
func Export(dir, name string, write func(io.Writer) error) (_ string, err error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()
	if err := write(f); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
