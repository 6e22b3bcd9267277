// Package pdf turns PDFs into page images for OCR and pulls their embedded
// text layer back out.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog"

	"ocrbench/internal/logger"
	"ocrbench/internal/ocr"
	"ocrbench/internal/proc"
)

// DefaultDPI is the rasterization resolution.
const DefaultDPI = 300

var (
	// ErrNoPages is returned for documents without pages.
	ErrNoPages = errors.New("PDF has no pages")

	// ErrArtifactMissing is returned when the rasterizer exits cleanly but a
	// page image is absent.
	ErrArtifactMissing = ocr.ErrArtifactMissing
)

// PageCounter returns the number of pages in a PDF file.
type PageCounter func(path string) (int, error)

// PageCount reads the page count with pdfcpu.
func PageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PANIC: %+v", r)
		}
	}()
	n, err = api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return n, nil
}

// Rasterizer renders PDF pages to page_<n>.png with pdftoppm.
type Rasterizer struct {
	Binary    string
	DPI       int
	Runner    proc.Runner
	PageCount PageCounter

	log zerolog.Logger
}

// NewRasterizer creates a rasterizer running binary (default "pdftoppm") at dpi.
func NewRasterizer(binary string, dpi int, runner proc.Runner) *Rasterizer {
	if binary == "" {
		binary = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Rasterizer{
		Binary:    binary,
		DPI:       dpi,
		Runner:    runner,
		PageCount: PageCount,
		log:       logger.WithComponent("pdf"),
	}
}

// PagePath is the image path of the 1-based page n in outDir.
func PagePath(outDir string, n int) string {
	return filepath.Join(outDir, "page_"+strconv.Itoa(n)+".png")
}

// Rasterize writes one PNG per page into outDir, creating it if needed, and
// returns the image paths in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	pages, err := r.PageCount(pdfPath)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, fmt.Errorf("%s: %w", pdfPath, ErrNoPages)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	dpi := strconv.Itoa(r.DPI)
	paths := make([]string, 0, pages)
	for n := 1; n <= pages; n++ {
		page := strconv.Itoa(n)
		out := PagePath(outDir, n)
		// -singlefile appends the extension itself
		prefix := strings.TrimSuffix(out, ".png")
		err := r.Runner.Run(ctx, r.Binary,
			"-png", "-r", dpi,
			"-f", page, "-l", page,
			"-singlefile",
			pdfPath, prefix)
		if err != nil {
			return paths, fmt.Errorf("rasterize page %d: %w", n, err)
		}
		if _, err := os.Stat(out); err != nil {
			return paths, fmt.Errorf("rasterize page %d: %w: %s", n, ErrArtifactMissing, out)
		}

		r.log.Info().Str("path", out).Int("page", n).Msg("Saved page image")
		paths = append(paths, out)
	}
	return paths, nil
}
