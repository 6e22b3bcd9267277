package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrbench/internal/benchmark"
	"ocrbench/internal/config"
	"ocrbench/internal/logger"
	"ocrbench/internal/metrics"
	"ocrbench/internal/ocr"
	"ocrbench/internal/preprocess"
	"ocrbench/internal/proc"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Extract text from a single image with one OCR engine",
	Long: `Run one OCR engine over an image and print the recognized text.

Available engines: tesseract, ocrmypdf, gosseract (requires the gosseract
build tag), vision, documentai and openai. Cloud engines need credentials:

  vision, documentai - GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
  documentai         - GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID
  openai             - OPENAI_API_KEY

With --truth the transcription is also scored against a reference text.`,
	Example: `  # Recognize an Arabic scan with tesseract
  ocrbench ocr page.png

  # Binarize first, then use ocrmypdf and save the text
  ocrbench ocr page.png --engine ocrmypdf --preprocess -o page.txt

  # Score against a reference and print JSON
  ocrbench ocr page.png --truth page.txt --json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	Engine             string    `json:"engine"`
	CER                *float64  `json:"cer,omitempty"`
	WER                *float64  `json:"wer,omitempty"`
	Scorer             string    `json:"scorer,omitempty"`
	Preprocessed       bool      `json:"preprocessed"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().String("engine", "tesseract", "OCR engine to use")
	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Bool("preprocess", false, "Binarize and despeckle the image before OCR")
	ocrCmd.Flags().String("truth", "", "Ground-truth text file to score against")
	ocrCmd.Flags().String("scorer", "", "Scoring method: ratio or levenshtein (default from BENCH_SCORER)")
	ocrCmd.Flags().String("scratch", "", "Directory for engine artifacts (default: temporary, removed afterwards)")
	ocrCmd.Flags().String("lang", "", "Tesseract language code (default from OCR_LANGUAGE)")
	ocrCmd.Flags().Int("timeout", 0, "Processing timeout in seconds (default from OCR_TIMEOUT)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")
	cfg := loadConfig(log)

	// Get flags
	engineName, _ := cmd.Flags().GetString("engine")
	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	usePreprocess, _ := cmd.Flags().GetBool("preprocess")
	truthPath, _ := cmd.Flags().GetString("truth")
	scorerName, _ := cmd.Flags().GetString("scorer")
	scratchDir, _ := cmd.Flags().GetString("scratch")
	lang, _ := cmd.Flags().GetString("lang")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	applyOverrides(cfg, lang, timeoutSecs)
	if scorerName == "" {
		scorerName = cfg.Scorer
	}

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Str("engine", engineName).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Bool("preprocess", usePreprocess).
		Dur("timeout", cfg.ProcessTimeout).
		Msg("Starting OCR processing")

	fileInfo, err := validateInputFile(imagePath, "image", nil, log)
	if err != nil {
		return err
	}

	scorer, reference, err := loadReference(truthPath, scorerName)
	if err != nil {
		return handleOCRError(err, log)
	}

	ctx, cancel := createContextWithTimeout(cfg.ProcessTimeout, log)
	defer cancel()

	if scratchDir == "" {
		tmp, err := os.MkdirTemp("", "ocrbench-ocr-*")
		if err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		scratchDir = tmp
	} else if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}

	input, err := stageImage(imagePath, scratchDir, cfg, usePreprocess, log)
	if err != nil {
		return err
	}

	engine, err := ocr.New(ctx, engineName, engineConfig(cfg))
	if err != nil {
		return handleOCRError(err, log)
	}
	defer ocr.CloseAll([]ocr.Engine{engine})

	startTime := time.Now()
	text, err := engine.Extract(ctx, input, scratchDir)
	if err != nil {
		return handleOCRError(err, log)
	}
	processingDuration := time.Since(startTime)

	result := OCROutput{
		Text:               text,
		Engine:             engine.Name(),
		Preprocessed:       usePreprocess,
		ProcessedAt:        time.Now(),
		ProcessingDuration: processingDuration.String(),
		FileName:           filepath.Base(fileInfo.Name()),
		FileSize:           fileInfo.Size(),
	}
	if scorer != nil {
		score := scorer.Score(text, reference)
		result.CER, result.WER, result.Scorer = &score.CER, &score.WER, scorer.Name()
	}

	log.Info().
		Str("engine", engine.Name()).
		Dur("duration", processingDuration).
		Int("text_length", len(text)).
		Msg("OCR processing completed successfully")

	return outputResults(result, outputPath, jsonOutput, log)
}

// loadReference reads the ground truth for single-image scoring. It returns
// a nil scorer when no ground truth is given.
func loadReference(truthPath, scorerName string) (metrics.Scorer, string, error) {
	if truthPath == "" {
		return nil, "", nil
	}
	scorer, err := metrics.ForName(scorerName)
	if err != nil {
		return nil, "", err
	}
	reference, err := benchmark.ReadGroundTruth(truthPath)
	if err != nil {
		return nil, "", err
	}
	return scorer, reference, nil
}

// applyOverrides folds per-command flags into the loaded configuration.
func applyOverrides(cfg *config.Config, lang string, timeoutSecs int) {
	if lang != "" {
		cfg.OCRLanguage = lang
	}
	if timeoutSecs > 0 {
		cfg.ProcessTimeout = time.Duration(timeoutSecs) * time.Second
	}
}

// stageImage copies the input into scratchDir so alpha flattening never
// rewrites the caller's file, optionally binarizing it first.
func stageImage(imagePath, scratchDir string, cfg *config.Config, usePreprocess bool, log zerolog.Logger) (string, error) {
	if usePreprocess {
		p, err := preprocess.New(preprocess.Options{
			OutputPath:   filepath.Join(scratchDir, "processed_image.png"),
			Threshold:    cfg.BinarizeThreshold,
			Otsu:         true,
			MedianKernel: cfg.MedianKernel,
		})
		if err != nil {
			return "", err
		}
		out, err := p.Process(imagePath)
		if err != nil {
			return "", handleOCRError(err, log)
		}
		return out, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	staged := filepath.Join(scratchDir, "input"+strings.ToLower(filepath.Ext(imagePath)))
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage image: %w", err)
	}

	flattened, err := ocr.FlattenAlpha(staged)
	if err != nil {
		return "", handleOCRError(err, log)
	}
	if flattened {
		log.Debug().Str("file", imagePath).Msg("Flattened alpha channel onto white")
	}
	return staged, nil
}

// validateInputFile checks if the file exists, is a non-empty regular file
// and, when extensions are given, warns about an unexpected extension.
func validateInputFile(path, kind string, extensions []string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msgf("%s file not found", kind)
			return nil, fmt.Errorf("%s file not found: %s", kind, path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msgf("Permission denied accessing %s file", kind)
			return nil, fmt.Errorf("permission denied accessing %s file: %s", kind, path)
		}
		return nil, fmt.Errorf("error accessing %s file: %w", kind, err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", path).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if len(extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		known := false
		for _, e := range extensions {
			if ext == e {
				known = true
				break
			}
		}
		if !known {
			log.Warn().
				Str("file", path).
				Strs("expected", extensions).
				Msg("Unexpected file extension")
		}
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", path).
			Msgf("%s file is empty", kind)
		return nil, fmt.Errorf("%s file is empty: %s", kind, path)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling.
// A non-positive timeout only cancels on signals.
func createContextWithTimeout(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, proc.ErrTimeout):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or OCR_TIMEOUT: %w", err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, proc.ErrBinaryNotFound):
		return fmt.Errorf("OCR tool not found. Install tesseract, ocrmypdf and poppler-utils, "+
			"or point TESSERACT_BINARY, OCRMYPDF_BINARY, PDFTOTEXT_BINARY and PDFTOPPM_BINARY at them: %w", err)
	case errors.Is(err, ocr.ErrUnknownEngine):
		return fmt.Errorf("%w. Choose one of: %s", err, strings.Join(ocr.Names(), ", "))
	case errors.Is(err, ocr.ErrEngineUnavailable):
		return fmt.Errorf("%w. Rebuild with: go build -tags gosseract", err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("cloud credentials are not configured. Please set:\n\n"+
			"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file, or\n"+
			"   GOOGLE_CREDENTIALS with the inline JSON (vision, documentai)\n\n"+
			"2. GOOGLE_CLOUD_PROJECT and DOCUMENT_AI_PROCESSOR_ID (documentai)\n\n"+
			"3. OPENAI_API_KEY (openai)\n\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrDecode), errors.Is(err, preprocess.ErrDecode):
		return fmt.Errorf("the image could not be decoded. Check that it is a valid PNG, JPEG, TIFF, BMP, GIF or WebP file: %w", err)
	case errors.Is(err, ocr.ErrArtifactMissing):
		return fmt.Errorf("the OCR tool exited without producing its output file: %w", err)
	case errors.Is(err, ocr.ErrEncoding):
		return fmt.Errorf("text is not valid UTF-8: %w", err)
	case errors.Is(err, ocr.ErrEmptyResponse):
		return fmt.Errorf("the OCR service returned no result. The image may be blank: %w", err)
	case errors.Is(err, proc.ErrExternalProcess):
		return fmt.Errorf("external OCR process failed: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}

// outputResults formats and outputs the OCR results
func outputResults(result OCROutput, outputPath string, jsonOutput bool, log zerolog.Logger) error {
	var outputData []byte

	if jsonOutput {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = data
	} else {
		var output strings.Builder
		if result.CER != nil {
			fmt.Fprintf(&output, "=== %s (%s) ===\n", result.FileName, result.Engine)
			fmt.Fprintf(&output, "CER: %.4f  WER: %.4f  (%s)\n", *result.CER, *result.WER, result.Scorer)
			fmt.Fprintf(&output, "Processing time: %s\n\n", result.ProcessingDuration)
		}
		output.WriteString(result.Text)
		outputData = []byte(output.String())
	}

	return writeOutput(outputData, outputPath, !jsonOutput, log)
}

// writeOutput writes data to outputPath, or to stdout when it is empty or "-".
func writeOutput(data []byte, outputPath string, trailingNewline bool, log zerolog.Logger) error {
	if outputPath != "" && outputPath != "-" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	if trailingNewline && (len(data) == 0 || data[len(data)-1] != '\n') {
		fmt.Println()
	}
	return nil
}
