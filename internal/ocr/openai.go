package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is a vision-capable chat model.
const DefaultOpenAIModel = "gpt-4o"

const transcriptionPrompt = `Transcribe all text in this scanned page exactly as written.
Keep the original language, line breaks and reading order.
Do not translate, summarize or correct anything.
Answer with the transcription only, without commentary or formatting.`

// chatCompleter is the part of the OpenAI client the engine uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIConfig configures the OpenAI transcription engine.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	Language  string
	MaxTokens int
}

// OpenAIEngine asks a vision-capable chat model to transcribe the image.
type OpenAIEngine struct {
	client chatCompleter
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIEngine creates the engine. APIKey is required.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, NewOCRError("openai", "NewOpenAIEngine", ErrMissingCredentials, "OPENAI_API_KEY is required")
	}
	return newOpenAIEngineWithClient(openai.NewClient(cfg.APIKey), cfg), nil
}

func newOpenAIEngineWithClient(client chatCompleter, cfg OpenAIConfig) *OpenAIEngine {
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &OpenAIEngine{
		client: client,
		config: cfg,
		log:    engineLogger("openai"),
	}
}

// Name implements Engine.
func (e *OpenAIEngine) Name() string { return "openai" }

// Extract implements Engine.
func (e *OpenAIEngine) Extract(ctx context.Context, imagePath, scratchDir string) (string, error) {
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
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(content))

	prompt := transcriptionPrompt
	if e.config.Language != "" {
		prompt += fmt.Sprintf("\nThe expected language code is %q.", e.config.Language)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.config.Model,
		Temperature: 0,
		MaxTokens:   e.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", NewOCRError(e.Name(), op, err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return "", NewOCRError(e.Name(), op, ErrEmptyResponse, "no response choices")
	}

	text := resp.Choices[0].Message.Content
	if err := writeText(e.Name(), scratchDir, text); err != nil {
		return "", err
	}

	e.log.Debug().
		Str("image", imagePath).
		Str("model", e.config.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("elapsed", time.Since(start)).
		Msg("OpenAI transcription finished")

	return text, nil
}
