package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allScorers() []Scorer {
	return []Scorer{RatioScorer{}, LevenshteinScorer{}}
}

func TestIdenticalInputsScoreZero(t *testing.T) {
	inputs := []string{"abc", "a b c", "السلام عليكم", "line one\nline two"}
	for _, s := range allScorers() {
		for _, in := range inputs {
			score := s.Score(in, in)
			assert.Zero(t, score.CER, "%s cer(%q)", s.Name(), in)
			assert.Zero(t, score.WER, "%s wer(%q)", s.Name(), in)
		}
	}
}

func TestEmptyInputsScoreZero(t *testing.T) {
	for _, s := range allScorers() {
		score := s.Score("", "")
		assert.Zero(t, score.CER, s.Name())
		assert.Zero(t, score.WER, s.Name())
	}
}

func TestDisjointInputs(t *testing.T) {
	for _, s := range allScorers() {
		score := s.Score("abc", "xyz")
		assert.Greater(t, score.CER, 0.0, s.Name())
		assert.LessOrEqual(t, score.CER, 1.0, s.Name())
	}
	assert.Equal(t, 1.0, RatioScorer{}.Score("abc", "xyz").CER)
}

func TestWordLevelComparison(t *testing.T) {
	ratio := RatioScorer{}.Score("a b d", "a b c")
	// 2 matching tokens out of 3+3: 1 - 4/6
	assert.InDelta(t, 1.0/3.0, ratio.WER, 1e-9)

	lev := LevenshteinScorer{}.Score("a b d", "a b c")
	assert.InDelta(t, 1.0/3.0, lev.WER, 1e-9)

	// tokens are opaque units, whitespace runs do not matter
	assert.Zero(t, RatioScorer{}.Score("a  b\tc", "a b c").WER)
}

func TestRatioScorerCharacters(t *testing.T) {
	// "abcd" vs "abxd": 3 matches out of 8 items.
	score := RatioScorer{}.Score("abxd", "abcd")
	assert.InDelta(t, 1-6.0/8.0, score.CER, 1e-9)

	// multi-byte runes count as single characters
	score = RatioScorer{}.Score("سلام", "سلام!")
	assert.InDelta(t, 1-8.0/9.0, score.CER, 1e-9)
}

func TestLevenshteinScorer(t *testing.T) {
	tests := []struct {
		name     string
		hyp, ref string
		cer      float64
	}{
		{"substitution", "kitten", "sitten", 1.0 / 6.0},
		{"insertion", "abcd", "abc", 1.0 / 3.0},
		{"deletion", "ab", "abc", 1.0 / 3.0},
		{"capped", "a much longer hypothesis", "ab", 1.0},
		{"empty reference", "x", "", 1.0},
		{"empty hypothesis", "", "abc", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.cer, LevenshteinScorer{}.Score(tt.hyp, tt.ref).CER, 1e-9)
		})
	}
}

func TestEditDistance(t *testing.T) {
	assert.Equal(t, 3, EditDistance([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 0, EditDistance(nil, nil))
}

func TestScoresStayInRange(t *testing.T) {
	pairs := [][2]string{
		{"", "reference"},
		{"hypothesis", ""},
		{"the quick brown fox", "the lazy dog"},
		{"ﻻ ﻻ ﻻ", "x"},
	}
	for _, s := range allScorers() {
		for _, p := range pairs {
			score := s.Score(p[0], p[1])
			assert.GreaterOrEqual(t, score.CER, 0.0)
			assert.LessOrEqual(t, score.CER, 1.0)
			assert.GreaterOrEqual(t, score.WER, 0.0)
			assert.LessOrEqual(t, score.WER, 1.0)
		}
	}
}

func TestForName(t *testing.T) {
	s, err := ForName("")
	require.NoError(t, err)
	assert.Equal(t, "ratio", s.Name())

	s, err = ForName("Levenshtein")
	require.NoError(t, err)
	assert.Equal(t, "levenshtein", s.Name())

	_, err = ForName("bleu")
	assert.True(t, errors.Is(err, ErrUnknownScorer))

	assert.Equal(t, []string{"levenshtein", "ratio"}, Names())
}
