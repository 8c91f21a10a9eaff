// Package budget approximates language-model input size from character counts.
//
// The estimate is a fixed characters-per-token ratio, not a tokenizer. Selection
// and report generation must share one Estimator so their budget decisions agree.
package budget

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// DefaultCharsPerToken is the ratio used when none is configured.
const DefaultCharsPerToken = 4

// ErrBudgetExceeded marks a document whose estimate is above the allowed ceiling.
var ErrBudgetExceeded = errors.New("token budget exceeded")

// Estimator converts between characters and estimated tokens.
type Estimator struct {
	CharsPerToken int
}

// New returns an Estimator for the given ratio (<= 0 falls back to the default).
func New(charsPerToken int) Estimator {
	return Estimator{CharsPerToken: charsPerToken}
}

func (e Estimator) ratio() int {
	if e.CharsPerToken <= 0 {
		return DefaultCharsPerToken
	}
	return e.CharsPerToken
}

// Estimate returns floor(characters / ratio). Characters are Unicode code points.
func (e Estimator) Estimate(text string) int {
	return utf8.RuneCountInString(text) / e.ratio()
}

// EstimateValue stringifies v before measuring it.
func (e Estimator) EstimateValue(v any) int {
	switch t := v.(type) {
	case string:
		return e.Estimate(t)
	case []byte:
		return e.Estimate(string(t))
	case nil:
		return 0
	default:
		return e.Estimate(fmt.Sprint(t))
	}
}

// CharCeiling converts a token ceiling into the matching character budget.
func (e Estimator) CharCeiling(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	return tokens * e.ratio()
}

// Check returns ErrBudgetExceeded (wrapped with the numbers) when text is over limit tokens.
func (e Estimator) Check(text string, limit int) (int, error) {
	tokens := e.Estimate(text)
	if tokens > limit {
		return tokens, fmt.Errorf("%w: %d > %d", ErrBudgetExceeded, tokens, limit)
	}
	return tokens, nil
}

// TruncateSuffix keeps the last maxChars characters of text. The second result
// reports whether anything was cut. maxChars <= 0 disables truncation.
func TruncateSuffix(text string, maxChars int) (string, bool) {
	if maxChars <= 0 || len(text) <= maxChars {
		// len in bytes >= rune count, so a byte length under the limit is always safe.
		return text, false
	}
	n := utf8.RuneCountInString(text)
	if n <= maxChars {
		return text, false
	}
	skip := n - maxChars
	for i := range text {
		if skip == 0 {
			return text[i:], true
		}
		skip--
	}
	return "", true
}
