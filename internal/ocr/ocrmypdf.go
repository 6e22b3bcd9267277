package ocr

import (
	"context"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"ocrbench/internal/proc"
)

// OCRmyPDFEngine renders the image into a searchable PDF with ocrmypdf and
// pulls the text layer back out with pdftotext.
type OCRmyPDFEngine struct {
	binary    string
	pdfToText string
	language  string
	dpi       int
	runner    proc.Runner
	log       zerolog.Logger
}

// NewOCRmyPDFEngine creates the engine. Empty binaries default to the names on PATH.
func NewOCRmyPDFEngine(binary, pdfToText, language string, dpi int, runner proc.Runner) *OCRmyPDFEngine {
	if binary == "" {
		binary = "ocrmypdf"
	}
	if pdfToText == "" {
		pdfToText = "pdftotext"
	}
	if language == "" {
		language = DefaultLanguage
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &OCRmyPDFEngine{
		binary:    binary,
		pdfToText: pdfToText,
		language:  language,
		dpi:       dpi,
		runner:    runner,
		log:       engineLogger("ocrmypdf"),
	}
}

// Name implements Engine.
func (e *OCRmyPDFEngine) Name() string { return "ocrmypdf" }

// Extract implements Engine.
func (e *OCRmyPDFEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	const op = "Extract"

	if err := ensureDir(e.Name(), scratchDir); err != nil {
		return "", err
	}

	pdfPath := filepath.Join(scratchDir, OutputBase+".pdf")
	txtPath := filepath.Join(scratchDir, OutputBase+".txt")

	err := e.runner.Run(ctx, e.binary,
		"--image-dpi", strconv.Itoa(e.dpi),
		"-l", e.language,
		imagePath, pdfPath)
	if err != nil {
		return "", NewOCRError(e.Name(), op, err, imagePath)
	}

	if !fileExists(pdfPath) {
		return "", NewOCRError(e.Name(), op, ErrArtifactMissing, pdfPath)
	}

	if err := e.runner.Run(ctx, e.pdfToText, pdfPath, txtPath); err != nil {
		return "", NewOCRError(e.Name(), "ExtractPDFText", err, pdfPath)
	}

	text, err := readText(e.Name(), txtPath)
	if err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Str("pdf", pdfPath).
		Int("dpi", e.dpi).
		Msg("OCRmyPDF finished")

	return text, nil
}
