// Package sentiment scores text against fixed positive and negative
// vocabularies.
package sentiment

import (
	"fmt"
	"strings"

	"github.com/JakeFAU/concurrent-sentiment/internal/input"
)

// Label is the exported sentiment class for a score.
type Label string

// Supported labels.
const (
	Positive Label = "Positive"
	Negative Label = "Negative"
	Neutral  Label = "Neutral"
)

// Classify maps the sign of a score to a Label.
func Classify(score int32) Label {
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	default:
		return Neutral
	}
}

// Vocabulary is an immutable pair of word sets. The zero value scores every
// text as 0.
type Vocabulary struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewVocabulary copies the given words into a Vocabulary.
func NewVocabulary(positive, negative []string) Vocabulary {
	return Vocabulary{
		positive: toSet(positive),
		negative: toSet(negative),
	}
}

// Load reads the two word list files into a Vocabulary.
func Load(positivePath, negativePath string) (Vocabulary, error) {
	pos, err := input.ReadFile(positivePath)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("load positive words: %w", err)
	}
	neg, err := input.ReadFile(negativePath)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("load negative words: %w", err)
	}
	return NewVocabulary(pos, neg), nil
}

// Size reports the number of positive and negative words.
func (v Vocabulary) Size() (positive, negative int) {
	return len(v.positive), len(v.negative)
}

// Score splits text on whitespace and returns the number of distinct positive
// tokens minus the number of distinct negative tokens. Matching is exact and
// case sensitive.
func (v Vocabulary) Score(text string) int32 {
	seen := make(map[string]struct{})
	var score int32
	for _, tok := range strings.Fields(text) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := v.positive[tok]; ok {
			score++
		}
		if _, ok := v.negative[tok]; ok {
			score--
		}
	}
	return score
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}
