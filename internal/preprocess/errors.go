package preprocess

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is returned when the input path cannot be decoded as an image.
	ErrDecode = errors.New("cannot decode image")

	// ErrEncode is returned when the processed image cannot be written.
	ErrEncode = errors.New("cannot write processed image")

	// ErrInvalidOptions is returned for out-of-range thresholds or kernel sizes.
	ErrInvalidOptions = errors.New("invalid preprocessing options")
)

// PreprocessError records which image and step failed.
type PreprocessError struct {
	Op   string
	Path string
	Err  error
}

func (e *PreprocessError) Error() string {
	return fmt.Sprintf("preprocess: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PreprocessError) Unwrap() error {
	return e.Err
}
