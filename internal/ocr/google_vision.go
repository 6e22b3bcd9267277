package ocr

import (
	"context"
	"fmt"
	"os"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// MaxImageSizeBytes is the largest inline image the cloud engines accept (20MB).
const MaxImageSizeBytes = 20 * 1024 * 1024

// imageAnnotator is the part of the Vision client the engine uses.
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// VisionEngine runs Google Cloud Vision document text detection on an image.
type VisionEngine struct {
	client        imageAnnotator
	languageHints []string
	log           zerolog.Logger
}

// googleClientOptions picks credentials from the environment.
// It expects either GOOGLE_CREDENTIALS JSON or a GOOGLE_APPLICATION_CREDENTIALS path;
// with neither set the client falls back to application default credentials.
func googleClientOptions() []option.ClientOption {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}
	}
	return nil
}

// NewVisionEngine creates a Vision engine with credentials from the environment.
func NewVisionEngine(ctx context.Context, languageHints []string) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	opts := googleClientOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, NewOCRError("vision", op, ErrMissingCredentials, err.Error())
		}
		return nil, NewOCRError("vision", op, err, "failed to create image annotator client")
	}

	return newVisionEngineWithClient(client, languageHints), nil
}

func newVisionEngineWithClient(client imageAnnotator, languageHints []string) *VisionEngine {
	return &VisionEngine{
		client:        client,
		languageHints: languageHints,
		log:           engineLogger("vision"),
	}
}

// Name implements Engine.
func (e *VisionEngine) Name() string { return "vision" }

// Extract implements Engine.
func (e *VisionEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
	const op = "Extract"
	start := time.Now()

	if err := ensureDir(e.Name(), scratchDir); err != nil {
		return "", err
	}

	content, err := readImage(e.Name(), imagePath)
	if err != nil {
		return "", err
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: content},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: e.languageHints,
				},
			},
		},
	}

	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", NewOCRError(e.Name(), op, err, "Vision API call failed")
	}
	if len(resp.GetResponses()) == 0 {
		return "", NewOCRError(e.Name(), op, ErrEmptyResponse, imagePath)
	}

	imgResp := resp.GetResponses()[0]
	if imgResp.GetError() != nil {
		return "", NewOCRError(e.Name(), op, fmt.Errorf("vision: %s", imgResp.GetError().GetMessage()), imagePath)
	}

	// An image without text has no full text annotation; that is an empty
	// result, not a failure.
	text := imgResp.GetFullTextAnnotation().GetText()

	if err := writeText(e.Name(), scratchDir, text); err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Dur("elapsed", time.Since(start)).
		Int("chars", len([]rune(text))).
		Msg("Vision text detection finished")

	return text, nil
}

// Close closes the underlying Vision client.
func (e *VisionEngine) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// readImage loads an image for inline upload, enforcing the size limit.
func readImage(engine, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewOCRError(engine, "ReadImage", err, path)
	}
	if len(data) > MaxImageSizeBytes {
		return nil, NewOCRError(engine, "ReadImage", fmt.Errorf("image too large: %d bytes", len(data)), path)
	}
	if len(data) == 0 {
		return nil, NewOCRError(engine, "ReadImage", ErrDecode, "empty image file")
	}
	return data, nil
}
