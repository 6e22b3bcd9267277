package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
)

func TestLoadReference(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "page.txt")
	invalid := filepath.Join(dir, "latin1.txt")
	require.NoError(t, os.WriteFile(valid, []byte("نص عربي"), 0o644))
	require.NoError(t, os.WriteFile(invalid, []byte{0x66, 0xe9, 0x65}, 0o644))

	scorer, reference, err := loadReference("", "ratio")
	require.NoError(t, err)
	assert.Nil(t, scorer, "no ground truth means no scoring")
	assert.Empty(t, reference)

	scorer, reference, err = loadReference(valid, "levenshtein")
	require.NoError(t, err)
	assert.Equal(t, metrics.LevenshteinScorerName, scorer.Name())
	assert.Equal(t, "نص عربي", reference)

	_, _, err = loadReference(invalid, "ratio")
	assert.True(t, errors.Is(err, ocr.ErrEncoding))
	assert.Contains(t, handleOCRError(err, zerolog.Nop()).Error(), "UTF-8")

	_, _, err = loadReference(valid, "bleu")
	assert.True(t, errors.Is(err, metrics.ErrUnknownScorer))
}

func TestPrintInventory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printInventory(&buf))

	out := buf.String()
	for _, name := range ocr.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Scorers: levenshtein, ratio")
	if !ocr.GosseractAvailable {
		assert.Contains(t, out, "-tags gosseract")
	}
}
