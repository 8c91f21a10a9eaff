// Package document merges a build log and a code diff into the single text
// payload that is measured against the token budget and sent to a backend.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
)

const (
	rule          = "========================"
	LogMarker     = "BUILD LOG"
	DiffMarker    = "CODE DIFF"
	logHeader     = "\n" + rule + "\n" + LogMarker + "\n" + rule + "\n"
	diffSeparator = "\n\n" + rule + "\n" + DiffMarker + "\n" + rule + "\n"
)

// ErrMalformed is returned by Sections for text not produced by Merge.
var ErrMalformed = errors.New("malformed merged document")

// Merge renders the BUILD LOG section followed by the CODE DIFF section.
// The diff is indented with two spaces, keeping its key order.
func Merge(log string, diff artifact.Diff) (string, error) {
	serialized, err := FormatDiff(diff)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(logHeader) + len(log) + len(diffSeparator) + len(serialized) + 1)
	b.WriteString(logHeader)
	b.WriteString(log)
	b.WriteString(diffSeparator)
	b.WriteString(serialized)
	b.WriteString("\n")
	return b.String(), nil
}

// FormatDiff serializes the diff as indented JSON.
func FormatDiff(diff artifact.Diff) (string, error) {
	raw := bytes.TrimSpace(diff)
	if len(raw) == 0 {
		return "null", nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", fmt.Errorf("format diff: %w", err)
	}
	return out.String(), nil
}

// Sections splits a merged document back into its log and diff text.
func Sections(doc string) (log, diff string, err error) {
	if !strings.HasPrefix(doc, logHeader) {
		return "", "", ErrMalformed
	}
	body := doc[len(logHeader):]
	// The diff is JSON and cannot contain the raw separator, so the last match is the real one.
	i := strings.LastIndex(body, diffSeparator)
	if i < 0 || !strings.HasSuffix(body, "\n") {
		return "", "", ErrMalformed
	}
	log = body[:i]
	diff = strings.TrimSuffix(body[i+len(diffSeparator):], "\n")
	return log, diff, nil
}
