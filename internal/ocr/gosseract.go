//go:build gosseract

package ocr

import (
	"context"
	"time"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"
)

// GosseractAvailable reports whether libtesseract was linked into this build.
const GosseractAvailable = true

// GosseractEngine runs libtesseract in-process through gosseract.
type GosseractEngine struct {
	language string
	log      zerolog.Logger
}

// NewGosseractEngine creates the in-process engine.
func NewGosseractEngine(language string) (*GosseractEngine, error) {
	if language == "" {
		language = DefaultLanguage
	}
	return &GosseractEngine{
		language: language,
		log:      engineLogger("gosseract"),
	}, nil
}

// Name implements Engine.
func (e *GosseractEngine) Name() string { return "gosseract" }

// Extract implements Engine. The recognition itself cannot be interrupted;
// ctx is checked before it starts.
func (e *GosseractEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	const op = "Extract"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return "", NewOCRError(e.Name(), op, err, imagePath)
	}
	if err := ensureDir(e.Name(), scratchDir); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return "", NewOCRError(e.Name(), op, err, "failed to set language "+e.language)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", NewOCRError(e.Name(), op, err, "failed to set page segmentation mode")
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", NewOCRError(e.Name(), op, ErrDecode, err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return "", NewOCRError(e.Name(), op, err, imagePath)
	}
	if err := writeText(e.Name(), scratchDir, text); err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Str("version", client.Version()).
		Dur("elapsed", time.Since(start)).
		Msg("Gosseract finished")

	return text, nil
}
