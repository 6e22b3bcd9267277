package metrics

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// LevenshteinScorerName is the registry key of LevenshteinScorer.
const LevenshteinScorerName = "levenshtein"

var unitCost = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: func(a, b rune) bool { return a == b },
}

// LevenshteinScorer computes CER/WER as
// (substitutions + insertions + deletions) / reference length,
// capped at 1. An empty reference scores 0 against an empty hypothesis and 1
// otherwise.
type LevenshteinScorer struct{}

// Name implements Scorer.
func (LevenshteinScorer) Name() string { return LevenshteinScorerName }

// Score implements Scorer.
func (LevenshteinScorer) Score(hypothesis, reference string) Score {
	hypWords, refWords := internWords(strings.Fields(hypothesis), strings.Fields(reference))
	return Score{
		CER: errorRate([]rune(hypothesis), []rune(reference)),
		WER: errorRate(hypWords, refWords),
	}
}

// EditDistance returns the unit-cost Levenshtein distance between a and b.
func EditDistance(a, b []rune) int {
	return levenshtein.DistanceForStrings(a, b, unitCost)
}

func errorRate(hyp, ref []rune) float64 {
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}
	rate := float64(EditDistance(hyp, ref)) / float64(len(ref))
	if rate > 1 {
		return 1
	}
	return rate
}

// internWords maps every distinct token to its own rune so token sequences
// can go through the rune based distance.
func internWords(hyp, ref []string) ([]rune, []rune) {
	ids := make(map[string]rune)
	encode := func(words []string) []rune {
		out := make([]rune, len(words))
		for i, w := range words {
			id, ok := ids[w]
			if !ok {
				// Private use area; stays clear of surrogates.
				id = rune(0xF0000 + len(ids))
				ids[w] = id
			}
			out[i] = id
		}
		return out
	}
	return encode(hyp), encode(ref)
}
