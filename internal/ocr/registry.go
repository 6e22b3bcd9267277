package ocr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"ocrbench/internal/proc"
)

// Config carries everything the registry needs to build any engine.
type Config struct {
	Language string
	DPI      int
	Timeout  time.Duration

	TesseractBinary string
	OCRmyPDFBinary  string
	PdfToTextBinary string

	// Runner overrides the process runner built from Timeout.
	Runner proc.Runner

	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string
	VisionLanguageHints   []string

	OpenAIAPIKey string
	OpenAIModel  string
}

type factory func(ctx context.Context, cfg Config) (Engine, error)

var factories = map[string]factory{
	"tesseract": func(_ context.Context, cfg Config) (Engine, error) {
		return NewTesseractEngine(cfg.TesseractBinary, cfg.Language, cfg.runner()), nil
	},
	"ocrmypdf": func(_ context.Context, cfg Config) (Engine, error) {
		return NewOCRmyPDFEngine(cfg.OCRmyPDFBinary, cfg.PdfToTextBinary, cfg.Language, cfg.DPI, cfg.runner()), nil
	},
	"gosseract": func(_ context.Context, cfg Config) (Engine, error) {
		return NewGosseractEngine(cfg.Language)
	},
	"vision": func(ctx context.Context, cfg Config) (Engine, error) {
		return NewVisionEngine(ctx, cfg.VisionLanguageHints)
	},
	"documentai": func(ctx context.Context, cfg Config) (Engine, error) {
		return NewDocumentAIEngine(ctx, DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
	},
	"openai": func(_ context.Context, cfg Config) (Engine, error) {
		return NewOpenAIEngine(OpenAIConfig{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIModel,
			Language: cfg.Language,
		})
	},
}

func (c Config) runner() proc.Runner {
	if c.Runner != nil {
		return c.Runner
	}
	return proc.NewExecRunner(c.Timeout)
}

// Names lists the engines New can build, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the engine registered under name.
func New(ctx context.Context, name string, cfg Config) (Engine, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownEngine, name, strings.Join(Names(), ", "))
	}
	return f(ctx, cfg)
}

// NewAll builds every named engine in order. Engines built before a failure
// are closed.
func NewAll(ctx context.Context, names []string, cfg Config) ([]Engine, error) {
	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		e, err := New(ctx, name, cfg)
		if err != nil {
			CloseAll(engines)
			return nil, err
		}
		engines = append(engines, e)
	}
	return engines, nil
}

// CloseAll releases engines holding network clients.
func CloseAll(engines []Engine) {
	for _, e := range engines {
		if c, ok := e.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				log := engineLogger(e.Name())
				log.Warn().Err(err).Msg("Failed to close engine")
			}
		}
	}
}
