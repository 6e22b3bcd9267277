package ocr

import (
	"context"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"ocrbench/internal/proc"
)

// TesseractEngine runs the tesseract CLI and reads its text sidecar.
type TesseractEngine struct {
	binary   string
	language string
	runner   proc.Runner
	log      zerolog.Logger
}

// NewTesseractEngine creates an engine that invokes binary through runner.
func NewTesseractEngine(binary, language string, runner proc.Runner) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &TesseractEngine{
		binary:   binary,
		language: language,
		runner:   runner,
		log:      engineLogger("tesseract"),
	}
}

// Name implements Engine.
func (e *TesseractEngine) Name() string { return "tesseract" }

// Extract implements Engine.
func (e *TesseractEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	const op = "Extract"

	if err := ensureDir(e.Name(), scratchDir); err != nil {
		return "", err
	}

	base := filepath.Join(scratchDir, OutputBase)
	start := time.Now()
	if err := e.runner.Run(ctx, e.binary, imagePath, base, "-l", e.language); err != nil {
		return "", NewOCRError(e.Name(), op, err, imagePath)
	}

	text, err := readText(e.Name(), base+".txt")
	if err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Dur("elapsed", time.Since(start)).
		Int("chars", len([]rune(text))).
		Msg("Tesseract finished")

	return text, nil
}
