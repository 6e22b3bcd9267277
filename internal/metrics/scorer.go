// Package metrics scores OCR output against ground truth.
//
// Two strategies are available. RatioScorer reproduces the historical
// "1 - similarity ratio" approximation of CER/WER; LevenshteinScorer computes
// textbook edit-distance rates. They are different metrics and their numbers
// must not be compared with each other.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownScorer is returned by ForName for unregistered strategies.
var ErrUnknownScorer = errors.New("unknown scorer")

// Score holds normalized error rates; 0 is a perfect match.
type Score struct {
	CER float64
	WER float64
}

// Scorer compares a hypothesis (OCR output) with a reference (ground truth).
type Scorer interface {
	Name() string
	Score(hypothesis, reference string) Score
}

var scorers = map[string]Scorer{
	RatioScorerName:       RatioScorer{},
	LevenshteinScorerName: LevenshteinScorer{},
}

// ForName returns the scorer registered under name. An empty name selects
// the ratio scorer.
func ForName(name string) (Scorer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RatioScorer{}, nil
	}
	s, ok := scorers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownScorer, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the registered scorers, sorted.
func Names() []string {
	names := make([]string, 0, len(scorers))
	for name := range scorers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runeStrings splits s into one string per rune.
func runeStrings(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
