// Package output owns the on-disk layout of merge inputs and generated reports:
//
//	<dir>/<id>/merged_input_<id>.txt
//	<dir>/<id>/<backend>/<mode>_report_<id>.txt
//	<dir>/<id>/readibility_report.txt
//
// Every write replaces the previous file wholesale.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes and reads files under a guarded output directory.
type Store struct {
	root root
}

// NewStore roots a Store at dir (created lazily on first write).
func NewStore(dir string) (*Store, error) {
	r, err := newRoot(dir)
	if err != nil {
		return nil, err
	}
	return &Store{root: r}, nil
}

// Dir returns the absolute output directory.
func (s *Store) Dir() string {
	return string(s.root)
}

// MergedPath is the relative path of an artifact's merged input.
func MergedPath(id string) (string, error) {
	if err := checkSegment("artifact id", id); err != nil {
		return "", err
	}
	return filepath.Join(id, "merged_input_"+id+".txt"), nil
}

// ReportPath is the relative path of a report for (artifact, backend, mode).
func ReportPath(id, backend, mode string) (string, error) {
	if err := checkSegment("artifact id", id); err != nil {
		return "", err
	}
	if err := checkSegment("backend", backend); err != nil {
		return "", err
	}
	if err := checkSegment("mode", mode); err != nil {
		return "", err
	}
	return filepath.Join(id, backend, mode+"_report_"+id+".txt"), nil
}

// ReadabilityPath is the relative path of an artifact's readability scores.
// The file name keeps the historical spelling so existing trees stay readable.
func ReadabilityPath(id string) (string, error) {
	if err := checkSegment("artifact id", id); err != nil {
		return "", err
	}
	return filepath.Join(id, "readibility_report.txt"), nil
}

// WriteFile replaces rel with content and returns the absolute path written.
func (s *Store) WriteFile(rel, content string) (string, error) {
	resolved, err := s.root.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	return resolved, nil
}

// ReadFile returns the contents of rel.
func (s *Store) ReadFile(rel string) (string, error) {
	resolved, err := s.root.resolve(rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exists reports whether rel is a regular file.
func (s *Store) Exists(rel string) (bool, error) {
	resolved, err := s.root.resolve(rel)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
