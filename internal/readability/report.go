package readability

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ahnaf005/llm-bug-report/internal/output"
)

// Variant is one (backend, mode) report whose readability is scored.
type Variant struct {
	Name    string
	Backend string
	Mode    string
}

// DefaultVariants are scored in this order.
var DefaultVariants = []Variant{
	{Name: "gemini_simple", Backend: "gemini_api", Mode: "simple"},
	{Name: "gemini_smart", Backend: "gemini_api", Mode: "smart"},
	{Name: "openai_simple", Backend: "openai_api", Mode: "simple"},
	{Name: "openai_smart", Backend: "openai_api", Mode: "smart"},
}

// Score is the result for one variant; Value is nil when the report is missing.
type Score struct {
	Variant Variant
	Path    string
	Value   *float64
}

// ScoreArtifact scores every variant of id found in store.
func ScoreArtifact(store *output.Store, id string, variants []Variant, logger *zap.Logger) ([]Score, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(variants) == 0 {
		variants = DefaultVariants
	}

	scores := make([]Score, 0, len(variants))
	for _, v := range variants {
		rel, err := output.ReportPath(id, v.Backend, v.Mode)
		if err != nil {
			return nil, err
		}
		s := Score{Variant: v, Path: rel}
		text, err := store.ReadFile(rel)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Warn("report not found", zap.String("variant", v.Name), zap.String("path", rel))
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", rel, err)
		default:
			value := FleschReadingEase(text)
			s.Value = &value
			logger.Info("scored report", zap.String("variant", v.Name), zap.Float64("flesch_reading_ease", value))
		}
		scores = append(scores, s)
	}
	return scores, nil
}

// Marshal renders scores as an ordered YAML mapping of name to score (null when missing).
func Marshal(scores []Score) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range scores {
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
		if s.Value != nil {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatScore(*s.Value)}
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Variant.Name},
			val,
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode readability report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write scores id and replaces its readability report. It returns the scores and the absolute path.
func Write(store *output.Store, id string, variants []Variant, logger *zap.Logger) ([]Score, string, error) {
	scores, err := ScoreArtifact(store, id, variants, logger)
	if err != nil {
		return nil, "", err
	}
	data, err := Marshal(scores)
	if err != nil {
		return nil, "", err
	}
	rel, err := output.ReadabilityPath(id)
	if err != nil {
		return nil, "", err
	}
	path, err := store.WriteFile(rel, string(data))
	if err != nil {
		return nil, "", err
	}
	return scores, path, nil
}

// formatScore rounds to six decimals so float noise does not leak into the file.
func formatScore(v float64) string {
	out := strconv.FormatFloat(math.Round(v*1e6)/1e6, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}
