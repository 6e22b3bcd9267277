package ocr_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ocrbench/internal/ocr"
)

// Example demonstrates running a single engine on one image.
func Example() {
	// Create context with timeout for OCR processing
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine, err := ocr.New(ctx, "tesseract", ocr.Config{
		Language: "ara",
		Timeout:  120 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// Some engines reject RGBA input
	if _, err := ocr.FlattenAlpha("sample.png"); err != nil {
		log.Fatalf("Failed to flatten image: %v", err)
	}

	text, err := engine.Extract(ctx, "sample.png", "output/tesseract/sample")
	if err != nil {
		log.Fatalf("OCR failed: %v", err)
	}

	fmt.Printf("Extracted text (%d characters):\n%s\n", len([]rune(text)), text)
}

// ExampleOCRError demonstrates telling engine failures apart.
func ExampleOCRError() {
	ctx := context.Background()

	engine, err := ocr.New(ctx, "ocrmypdf", ocr.Config{Language: "ara", DPI: 300})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	_, err = engine.Extract(ctx, "sample.png", "output/ocrmypdf/sample")
	switch {
	case err == nil:
		fmt.Println("ok")
	case errors.Is(err, ocr.ErrBinaryNotFound):
		fmt.Println("install ocrmypdf and pdftotext first")
	case errors.Is(err, ocr.ErrTimeout):
		fmt.Println("ocrmypdf timed out")
	case errors.Is(err, ocr.ErrArtifactMissing):
		fmt.Println("ocrmypdf exited cleanly but produced no PDF")
	default:
		var ocrErr *ocr.OCRError
		if errors.As(err, &ocrErr) {
			fmt.Printf("%s failed during %s: %v\n", ocrErr.Engine, ocrErr.Op, ocrErr.Err)
		}
	}
}

// ExampleNames lists the engines that can be benchmarked.
func ExampleNames() {
	for _, name := range ocr.Names() {
		fmt.Println(name)
	}
	// Output:
	// documentai
	// gosseract
	// ocrmypdf
	// openai
	// tesseract
	// vision
}
