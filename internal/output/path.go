package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesOutput is returned for relative paths that leave the output directory.
var ErrEscapesOutput = errors.New("path escapes output directory")

// root is an absolute output directory that relative paths are resolved against.
type root string

func newRoot(dir string) (root, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	return root(abs), nil
}

// resolve joins rel under the root, refusing absolute paths and any ".." escape.
func (r root) resolve(rel string) (string, error) {
	if rel == "" {
		return "", errors.New("output path is required")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is absolute", ErrEscapesOutput, rel)
	}
	abs := filepath.Join(string(r), rel)
	within, err := filepath.Rel(string(r), abs)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrEscapesOutput, rel)
	}
	return abs, nil
}

// checkSegment rejects identifiers that would add or climb directory levels.
func checkSegment(kind, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", kind)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	return nil
}
