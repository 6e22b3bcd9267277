package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"ocrbench/internal/logger"
)

type Config struct {
	// External binaries
	TesseractBinary string
	OCRmyPDFBinary  string
	PdfToTextBinary string
	PdfToPPMBinary  string

	// OCR settings
	OCRLanguage    string
	OCRmyPDFDPI    int
	ProcessTimeout time.Duration

	// Benchmark settings
	ScratchDir string
	Workers    int
	Scorer     string
	FailFast   bool
	Engines    []string
	ChartPath  string

	// Preprocessing
	ProcessedImagePath string
	BinarizeThreshold  int
	MedianKernel       int

	// PDF rasterization
	RasterDPI int

	// Google Cloud Configuration
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string
	VisionLanguageHints   []string

	// OpenAI Configuration
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		TesseractBinary:       getEnv("TESSERACT_BINARY", "tesseract"),
		OCRmyPDFBinary:        getEnv("OCRMYPDF_BINARY", "ocrmypdf"),
		PdfToTextBinary:       getEnv("PDFTOTEXT_BINARY", "pdftotext"),
		PdfToPPMBinary:        getEnv("PDFTOPPM_BINARY", "pdftoppm"),
		OCRLanguage:           getEnv("OCR_LANGUAGE", "ara"),
		ScratchDir:            getEnv("BENCH_SCRATCH_DIR", "output"),
		Scorer:                getEnv("BENCH_SCORER", "ratio"),
		Engines:               getEnvList("BENCH_ENGINES", []string{"tesseract", "ocrmypdf"}),
		ChartPath:             getEnv("BENCH_CHART_PATH", "benchmark.png"),
		ProcessedImagePath:    getEnv("PROCESSED_IMAGE_PATH", "processed_image.png"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		VisionLanguageHints:   getEnvList("VISION_LANGUAGE_HINTS", nil),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o"),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "OCR_Benchmark"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	var err error
	if config.OCRmyPDFDPI, err = getEnvInt("OCRMYPDF_DPI", 300); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.RasterDPI, err = getEnvInt("RASTER_DPI", 300); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.Workers, err = getEnvInt("BENCH_WORKERS", 1); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.BinarizeThreshold, err = getEnvInt("BINARIZE_THRESHOLD", 150); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.MedianKernel, err = getEnvInt("MEDIAN_KERNEL", 3); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.ProcessTimeout, err = getEnvDuration("OCR_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if config.FailFast, err = getEnvBool("BENCH_FAIL_FAST", false); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns the configuration Load produces with an empty environment.
func Default() *Config {
	return &Config{
		TesseractBinary:      "tesseract",
		OCRmyPDFBinary:       "ocrmypdf",
		PdfToTextBinary:      "pdftotext",
		PdfToPPMBinary:       "pdftoppm",
		OCRLanguage:          "ara",
		OCRmyPDFDPI:          300,
		ProcessTimeout:       120 * time.Second,
		ScratchDir:           "output",
		Workers:              1,
		Scorer:               "ratio",
		Engines:              []string{"tesseract", "ocrmypdf"},
		ChartPath:            "benchmark.png",
		ProcessedImagePath:   "processed_image.png",
		BinarizeThreshold:    150,
		MedianKernel:         3,
		RasterDPI:            300,
		GoogleCloudLocation:  "us",
		OpenAIModel:          "gpt-4o",
		GoogleSheetWorksheet: "OCR_Benchmark",
		LogLevel:             "info",
		LogFormat:            "console",
		LogTimeFormat:        "2006-01-02T15:04:05Z07:00",
		LogOutput:            "stderr",
	}
}

func (c *Config) validate() error {
	if c.OCRmyPDFDPI <= 0 {
		return fmt.Errorf("OCRMYPDF_DPI must be positive, got %d", c.OCRmyPDFDPI)
	}
	if c.RasterDPI <= 0 {
		return fmt.Errorf("RASTER_DPI must be positive, got %d", c.RasterDPI)
	}
	if c.Workers < 1 {
		return fmt.Errorf("BENCH_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.BinarizeThreshold < 0 || c.BinarizeThreshold > 255 {
		return fmt.Errorf("BINARIZE_THRESHOLD must be within 0..255, got %d", c.BinarizeThreshold)
	}
	if c.MedianKernel < 1 || c.MedianKernel%2 == 0 {
		return fmt.Errorf("MEDIAN_KERNEL must be a positive odd number, got %d", c.MedianKernel)
	}
	if c.ProcessTimeout < 0 {
		return fmt.Errorf("OCR_TIMEOUT must not be negative, got %s", c.ProcessTimeout)
	}
	if c.OCRLanguage == "" {
		return fmt.Errorf("OCR_LANGUAGE is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("90s", "2m") or plain seconds ("120").
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}
