// Package readability scores generated reports with the Flesch reading-ease formula.
package readability

import (
	"regexp"
	"strings"
)

var (
	wordRe     = regexp.MustCompile(`[A-Za-z]+(?:'[A-Za-z]+)?`)
	sentenceRe = regexp.MustCompile(`[.!?]+(?:\s|$)`)
	vowelRunRe = regexp.MustCompile(`[aeiouy]+`)
)

// Counts are the text statistics the formula is built from.
type Counts struct {
	Words     int
	Sentences int
	Syllables int
}

// Count tokenizes text into words, sentences and syllables.
// Text with words but no terminal punctuation counts as one sentence.
func Count(text string) Counts {
	words := tokenize(text)
	c := Counts{Words: len(words)}
	for _, w := range words {
		c.Syllables += syllables(w)
	}
	c.Sentences = len(sentenceRe.FindAllStringIndex(text, -1))
	if c.Sentences == 0 && c.Words > 0 {
		c.Sentences = 1
	}
	return c
}

// FleschReadingEase returns 206.835 - 1.015*(words/sentences) - 84.6*(syllables/words).
// Text without words scores 0.
func FleschReadingEase(text string) float64 {
	c := Count(text)
	if c.Words == 0 {
		return 0
	}
	return 206.835 -
		1.015*(float64(c.Words)/float64(c.Sentences)) -
		84.6*(float64(c.Syllables)/float64(c.Words))
}

func tokenize(s string) []string {
	return wordRe.FindAllString(strings.ToLower(s), -1)
}

// syllables approximates the syllable count of a lower-case word: vowel
// groups, minus a silent trailing e, never below one.
func syllables(word string) int {
	word = strings.ReplaceAll(word, "'", "")
	n := len(vowelRunRe.FindAllString(word, -1))
	if n > 1 && strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") {
		n--
	}
	if n < 1 {
		n = 1
	}
	return n
}
