package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Target is the file watched by a [Gate].
type Target struct {
	// Path is the absolute path of the file.
	Path string

	// Dir is the parent directory, which is what actually gets watched.
	Dir string

	// Name is the base name used to filter directory events.
	Name string
}

// ParseTarget resolves path and checks that its parent directory exists.
//
// The file itself does not need to exist yet.
func ParseTarget(path string) (Target, error) {
	if path == "" {
		return Target{}, errors.New("empty watch path")
	}

	abs, err := filepath.Abs(path)

	if err != nil {
		return Target{}, fmt.Errorf("cannot resolve %q: %w", path, err)
	}

	dir, name := filepath.Dir(abs), filepath.Base(abs)

	if name == string(filepath.Separator) {
		return Target{}, fmt.Errorf("cannot determine file name of %q", path)
	}

	info, err := os.Stat(dir)

	if err != nil {
		return Target{}, fmt.Errorf("cannot resolve parent directory of %q: %w", path, err)
	}

	if !info.IsDir() {
		return Target{}, fmt.Errorf("parent of %q is not a directory", path)
	}

	return Target{Path: abs, Dir: dir, Name: name}, nil
}
