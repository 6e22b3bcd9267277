package ocr

import (
	"errors"
	"fmt"

	"ocrbench/internal/proc"
)

// Common OCR engine errors
var (
	// ErrDecode is returned when the input image cannot be decoded.
	ErrDecode = errors.New("cannot decode input image")

	// ErrExternalProcess is returned when an OCR or PDF binary is missing,
	// exits non-zero or times out.
	ErrExternalProcess = proc.ErrExternalProcess

	// ErrBinaryNotFound is returned when the engine binary is not on the execution path.
	// It matches ErrExternalProcess as well.
	ErrBinaryNotFound = proc.ErrBinaryNotFound

	// ErrTimeout is returned when the engine binary outlives the configured timeout.
	// It matches ErrExternalProcess as well.
	ErrTimeout = proc.ErrTimeout

	// ErrArtifactMissing is returned when an invocation reported success but the
	// file it should have produced (sidecar text, searchable PDF) is absent.
	// It signals that the OCR stage failed silently.
	ErrArtifactMissing = errors.New("expected OCR artifact is missing")

	// ErrEncoding is returned when recognized text is not valid UTF-8.
	ErrEncoding = errors.New("text is not valid UTF-8")

	// ErrUnknownEngine is returned by New for engine names it does not know.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrEngineUnavailable is returned when an engine was not compiled in.
	ErrEngineUnavailable = errors.New("OCR engine not available in this build")

	// ErrMissingCredentials is returned when a cloud engine has no credentials
	// or required identifiers configured.
	ErrMissingCredentials = errors.New("missing cloud credentials or configuration")

	// ErrEmptyResponse is returned when a cloud engine answers without any text payload.
	ErrEmptyResponse = errors.New("OCR service returned no result")
)

// OCRError wraps errors with the engine and operation that failed.
type OCRError struct {
	// Engine is the engine name (e.g., "tesseract", "ocrmypdf").
	Engine string

	// Op is the operation that failed (e.g., "Extract", "FlattenAlpha").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	prefix := "ocr"
	if e.Engine != "" {
		prefix = "ocr/" + e.Engine
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %s failed: %s: %v", prefix, e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", prefix, e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// NewOCRError creates a new OCRError for engine and op.
func NewOCRError(engine, op string, err error, details string) *OCRError {
	return &OCRError{
		Engine:  engine,
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(engine, op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(engine, op, err, details)
}
