package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// documentProcessor is the part of the Document AI client the engine uses.
type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
	Close() error
}

// DocumentAIConfig identifies the Document AI OCR processor.
type DocumentAIConfig struct {
	ProjectID   string
	Location    string
	ProcessorID string
}

// ProcessorName returns the full resource name of the processor.
func (c DocumentAIConfig) ProcessorName() string {
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.ProjectID, c.Location, c.ProcessorID)
}

// DocumentAIEngine sends the image to a Document AI OCR processor.
type DocumentAIEngine struct {
	client documentProcessor
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIEngine creates the engine. ProjectID and ProcessorID are required;
// Location defaults to "us".
func NewDocumentAIEngine(ctx context.Context, cfg DocumentAIConfig) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	if cfg.ProjectID == "" {
		return nil, NewOCRError("documentai", op, ErrMissingCredentials, "GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.ProcessorID == "" {
		return nil, NewOCRError("documentai", op, ErrMissingCredentials, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}

	var clientOptions []option.ClientOption
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}
	creds := googleClientOptions()
	clientOptions = append(clientOptions, creds...)

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(creds) == 0 {
			return nil, NewOCRError("documentai", op, ErrMissingCredentials, err.Error())
		}
		return nil, NewOCRError("documentai", op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return newDocumentAIEngineWithClient(client, cfg), nil
}

func newDocumentAIEngineWithClient(client documentProcessor, cfg DocumentAIConfig) *DocumentAIEngine {
	return &DocumentAIEngine{
		client: client,
		config: cfg,
		log:    engineLogger("documentai"),
	}
}

// Name implements Engine.
func (e *DocumentAIEngine) Name() string { return "documentai" }

// Extract implements Engine.
func (e *DocumentAIEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	const op = "Extract"
	start := time.Now()

	if err := ensureDir(e.Name(), scratchDir); err != nil {
		return "", err
	}

	mime, err := mimeType(imagePath)
	if err != nil {
		return "", NewOCRError(e.Name(), op, err, imagePath)
	}
	content, err := readImage(e.Name(), imagePath)
	if err != nil {
		return "", err
	}

	req := &documentaipb.ProcessRequest{
		Name: e.config.ProcessorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mime,
			},
		},
	}

	resp, err := e.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", e.handleProcessingError(op, err)
	}
	if resp.GetDocument() == nil {
		return "", NewOCRError(e.Name(), op, ErrEmptyResponse, "no document in response")
	}

	text := resp.GetDocument().GetText()
	if err := writeText(e.Name(), scratchDir, text); err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Str("processor", e.config.ProcessorID).
		Int("pages", len(resp.GetDocument().GetPages())).
		Dur("elapsed", time.Since(start)).
		Msg("Document AI processing finished")

	return text, nil
}

// handleProcessingError maps Document AI failures onto engine errors.
func (e *DocumentAIEngine) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"), strings.Contains(errStr, "UNAUTHENTICATED"):
		return NewOCRError(e.Name(), op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewOCRError(e.Name(), op, err, fmt.Sprintf("processor not found: %s", e.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewOCRError(e.Name(), op, fmt.Errorf("%w: %v", ErrDecode, err), "image format not supported or corrupted")
	default:
		return NewOCRError(e.Name(), op, err, "Document AI error")
	}
}

// Close closes the underlying Document AI client.
func (e *DocumentAIEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
