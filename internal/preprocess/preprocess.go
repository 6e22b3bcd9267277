// Package preprocess cleans scanned pages before OCR: grayscale conversion,
// Otsu binarization and median despeckling.
package preprocess

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	// extra scan formats
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"ocrbench/internal/logger"
)

// DefaultOutputPath is where Process writes unless told otherwise.
const DefaultOutputPath = "processed_image.png"

// Options controls the fixed preprocessing sequence.
type Options struct {
	// OutputPath is overwritten on every call.
	OutputPath string

	// Threshold is the global binarization level, used when Otsu is disabled
	// or the image has a single gray level.
	Threshold int

	// Otsu selects the threshold automatically from the histogram.
	Otsu bool

	// MedianKernel is the odd side length of the despeckle filter; 1 disables it.
	MedianKernel int
}

// DefaultOptions mirrors the classic threshold(150, OTSU) + medianBlur(3) pipeline.
func DefaultOptions() Options {
	return Options{
		OutputPath:   DefaultOutputPath,
		Threshold:    150,
		Otsu:         true,
		MedianKernel: 3,
	}
}

// Preprocessor turns a raster image into a cleaned binary image. It writes to
// a single output path, so one Preprocessor must not be used concurrently.
type Preprocessor struct {
	opts Options
	log  zerolog.Logger
}

// New validates opts and returns a Preprocessor.
func New(opts Options) (*Preprocessor, error) {
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.Threshold < 0 || opts.Threshold > 255 {
		return nil, fmt.Errorf("%w: threshold %d outside 0..255", ErrInvalidOptions, opts.Threshold)
	}
	if opts.MedianKernel < 1 || opts.MedianKernel%2 == 0 {
		return nil, fmt.Errorf("%w: median kernel %d must be a positive odd number", ErrInvalidOptions, opts.MedianKernel)
	}
	return &Preprocessor{
		opts: opts,
		log:  logger.WithComponent("preprocess"),
	}, nil
}

// Process loads imagePath, binarizes and despeckles it and writes the result
// to the configured output path, which it returns.
func (p *Preprocessor) Process(imagePath string) (string, error) {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return "", &PreprocessError{Op: "decode", Path: imagePath, Err: fmt.Errorf("%w: %v", ErrDecode, err)}
	}

	out, level := p.Apply(src)

	if err := imaging.Save(out, p.opts.OutputPath); err != nil {
		return "", &PreprocessError{Op: "write", Path: p.opts.OutputPath, Err: fmt.Errorf("%w: %v", ErrEncode, err)}
	}

	p.log.Info().
		Str("input", imagePath).
		Str("output", p.opts.OutputPath).
		Int("threshold", int(level)).
		Int("median_kernel", p.opts.MedianKernel).
		Msg("Image preprocessed")

	return p.opts.OutputPath, nil
}

// Apply runs the in-memory part of Process and reports the threshold used.
func (p *Preprocessor) Apply(src image.Image) (*image.Gray, uint8) {
	gray := toGray(src)

	level := uint8(p.opts.Threshold)
	if p.opts.Otsu {
		if auto, ok := otsuThreshold(gray); ok {
			level = auto
		}
	}
	binarize(gray, level)

	return medianFilter(gray, p.opts.MedianKernel), level
}
