// Package ocr provides a uniform interface over OCR backends.
//
// Every backend takes an image path and a scratch directory and returns the
// recognized text. Backends that shell out (tesseract, ocrmypdf + pdftotext)
// leave their artifacts in the scratch directory:
//
//   - tesseract: <scratch>/output.txt
//   - ocrmypdf:  <scratch>/output.pdf and <scratch>/output.txt
//
// Cloud backends (Google Cloud Vision, Document AI, OpenAI) and the in-process
// gosseract backend write <scratch>/output.txt as well so runs can be compared
// file by file.
//
// Inputs with an alpha channel must be flattened first (see FlattenAlpha);
// several backends reject RGBA images.
package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"ocrbench/internal/logger"
)

const (
	// OutputBase is the basename of every artifact an engine writes.
	OutputBase = "output"

	// DefaultLanguage is the recognition language used when none is configured.
	DefaultLanguage = "ara"

	// DefaultDPI is the image resolution passed to ocrmypdf.
	DefaultDPI = 300
)

// Engine is a single OCR backend.
type Engine interface {
	// Name returns the unique engine name used as the results table key.
	Name() string

	// Extract recognizes the text in imagePath. scratchDir is created if needed
	// and holds the engine's intermediate and final artifacts.
	Extract(ctx context.Context, imagePath, scratchDir string) (string, error)
}

// readText reads an artifact produced by an engine. A missing file is reported
// as ErrArtifactMissing, invalid UTF-8 as ErrEncoding.
func readText(engine, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewOCRError(engine, "ReadOutput", ErrArtifactMissing, path)
		}
		return "", NewOCRError(engine, "ReadOutput", err, path)
	}
	if !utf8.Valid(data) {
		return "", NewOCRError(engine, "ReadOutput", ErrEncoding, path)
	}
	return string(data), nil
}

// writeText stores recognized text as <scratch>/output.txt.
func writeText(engine, scratchDir, text string) error {
	path := filepath.Join(scratchDir, OutputBase+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return NewOCRError(engine, "WriteOutput", err, path)
	}
	return nil
}

func engineLogger(engine string) zerolog.Logger {
	return logger.WithFields(map[string]interface{}{
		"component": "ocr",
		"engine":    engine,
	})
}

func ensureDir(engine, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return NewOCRError(engine, "PrepareScratch", err, dir)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// mimeType guesses the MIME type cloud engines need from the file extension.
func mimeType(path string) (string, error) {
	switch ext := filepath.Ext(path); ext {
	case ".png", ".PNG":
		return "image/png", nil
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return "image/jpeg", nil
	case ".tif", ".tiff", ".TIF", ".TIFF":
		return "image/tiff", nil
	case ".gif", ".GIF":
		return "image/gif", nil
	case ".bmp", ".BMP":
		return "image/bmp", nil
	case ".webp", ".WEBP":
		return "image/webp", nil
	default:
		return "", fmt.Errorf("%w: unsupported image extension %q", ErrDecode, ext)
	}
}
