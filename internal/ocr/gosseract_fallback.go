//go:build !gosseract

package ocr

import "context"

// GosseractAvailable reports whether libtesseract was linked into this build.
const GosseractAvailable = false

// GosseractEngine is a stub; build with -tags gosseract to link libtesseract.
type GosseractEngine struct{}

// NewGosseractEngine always fails with ErrEngineUnavailable in this build.
func NewGosseractEngine(language string) (*GosseractEngine, error) {
	return nil, NewOCRError("gosseract", "NewGosseractEngine", ErrEngineUnavailable, "rebuild with -tags gosseract")
}

// Name implements Engine.
func (e *GosseractEngine) Name() string { return "gosseract" }

// Extract implements Engine.
func (e *GosseractEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	return "", NewOCRError(e.Name(), "Extract", ErrEngineUnavailable, "rebuild with -tags gosseract")
}
