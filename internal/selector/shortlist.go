package selector

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyShortlist is returned instead of writing a file with no identifiers.
var ErrEmptyShortlist = errors.New("no artifacts satisfied the token limit")

// WriteShortlist writes one identifier per line, replacing any existing file.
func WriteShortlist(path string, ids []string) error {
	if len(ids) == 0 {
		return ErrEmptyShortlist
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create shortlist dir: %w", err)
		}
	}
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write shortlist: %w", err)
	}
	return nil
}

// ReadShortlist returns the identifiers in path, skipping blank lines.
func ReadShortlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shortlist: %w", err)
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read shortlist: %w", err)
	}
	return ids, nil
}
