package metrics

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// RatioScorerName is the registry key of RatioScorer.
const RatioScorerName = "ratio"

// RatioScorer scores 1 - ratio, where ratio is the Ratcliff/Obershelp
// similarity 2*M/T of the two sequences. CER compares characters and WER
// compares whitespace-separated tokens as opaque units. Two empty inputs have
// ratio 1.
//
// This is not an edit distance; see LevenshteinScorer for that.
type RatioScorer struct{}

// Name implements Scorer.
func (RatioScorer) Name() string { return RatioScorerName }

// Score implements Scorer.
func (RatioScorer) Score(hypothesis, reference string) Score {
	return Score{
		CER: 1 - Ratio(runeStrings(hypothesis), runeStrings(reference)),
		WER: 1 - Ratio(strings.Fields(hypothesis), strings.Fields(reference)),
	}
}

// Ratio returns the similarity of a and b in [0, 1]. Like Python's difflib,
// popular elements of b are treated as junk once b has 200 or more items.
func Ratio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}
