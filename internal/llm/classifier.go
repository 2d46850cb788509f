// Package llm – Classifier
//
// This file implements the per-request inference orchestration: upload the
// staged file to Gemini, wait for video files to become active, send the
// kind-specific classification prompt, and parse the verdict out of the
// response text. Any failure along the way degrades to the Unknown sentinel
// instead of failing the request, so the chat is persisted with a degraded
// record rather than lost. The remote file handle is deleted on every exit
// path once it exists.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/trueai/go-detect-backend/internal/domain"
)

// DefaultModel is the Gemini model used for classification.
const DefaultModel = "gemini-2.0-flash"

// ErrProcessingTimeout is returned internally when a video file does not
// become active within the configured polling budget. The source behavior
// this replaces polled forever; the bound is deliberate and configurable.
var ErrProcessingTimeout = errors.New("remote file did not become active in time")

// fileAPI is the slice of the Gemini client the classifier depends on.
// The real implementation wraps *genai.Client; tests substitute a fake.
type fileAPI interface {
	// UploadFile submits a local file and returns its remote handle.
	UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error)
	// GetFile re-fetches a handle to observe its processing state.
	GetFile(ctx context.Context, name string) (*genai.File, error)
	// DeleteFile removes the remote copy of an uploaded file.
	DeleteFile(ctx context.Context, name string) error
	// Generate sends the file plus prompt to the model and returns the text.
	Generate(ctx context.Context, file *genai.File, prompt string) (string, error)
}

// Outcome is the tagged result of one classification attempt. Degraded
// outcomes carry the Unknown sentinel verdict and are persisted like any
// other; the distinction exists for code and tests, not the wire.
type Outcome struct {
	Verdict  domain.Verdict
	Degraded bool
}

// Classifier submits media files to Gemini and extracts verdicts.
type Classifier struct {
	api fileAPI

	// PollInterval is the delay between video readiness checks.
	PollInterval time.Duration
	// PollMaxAttempts bounds the readiness polling phase. The budget is
	// PollInterval * PollMaxAttempts of waiting before giving up.
	PollMaxAttempts int
}

// NewClassifier wraps a Gemini client with default polling settings
// (2s interval, 150 attempts).
func NewClassifier(client *genai.Client, model string) *Classifier {
	if model == "" {
		model = DefaultModel
	}
	return &Classifier{
		api:             &geminiAPI{client: client, model: model},
		PollInterval:    2 * time.Second,
		PollMaxAttempts: 150,
	}
}

// Classify runs the full inference flow for the staged file at path.
//
// It never returns an error: failures produce a degraded Outcome whose
// reason starts with "Error:" so the caller persists a usable record.
func (c *Classifier) Classify(ctx context.Context, path, mimeType string, kind domain.MediaKind) Outcome {
	tr := otel.Tracer("llm/Classifier")
	ctx, span := tr.Start(ctx, "Classify",
		trace.WithAttributes(
			attribute.String("media.kind", string(kind)),
			attribute.String("media.mime_type", mimeType),
		),
	)
	defer span.End()

	file, err := c.api.UploadFile(ctx, path, mimeType)
	if err != nil {
		return degraded(fmt.Errorf("upload to inference service: %w", err))
	}
	// Guaranteed cleanup of the inference-side copy, success or failure.
	defer func() {
		// The request context may already be cancelled; give the delete
		// its own short deadline so cleanup still happens.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if derr := c.api.DeleteFile(dctx, file.Name); derr != nil {
			log.Error().Err(derr).Str("file", file.Name).Msg("failed to delete inference-side file")
			return
		}
		log.Info().Str("file", file.Name).Msg("cleaned up inference-side file")
	}()

	if kind == domain.MediaVideo {
		if file, err = c.awaitActive(ctx, file); err != nil {
			return degraded(err)
		}
	}

	text, err := c.api.Generate(ctx, file, promptFor(kind))
	if err != nil {
		return degraded(fmt.Errorf("generate classification: %w", err))
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		return degraded(fmt.Errorf("parse model response: %w", err))
	}
	return Outcome{Verdict: verdict}
}

// awaitActive polls the remote handle until it reports active, the attempt
// budget is exhausted, or the context is cancelled.
func (c *Classifier) awaitActive(ctx context.Context, file *genai.File) (*genai.File, error) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	attempts := c.PollMaxAttempts
	if attempts <= 0 {
		attempts = 150
	}

	for i := 0; file.State != genai.FileStateActive; i++ {
		if file.State == genai.FileStateFailed {
			return nil, errors.New("remote file processing failed")
		}
		if i >= attempts {
			return nil, ErrProcessingTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		next, err := c.api.GetFile(ctx, file.Name)
		if err != nil {
			return nil, fmt.Errorf("poll file state: %w", err)
		}
		file = next
	}
	return file, nil
}

// degraded maps an orchestration failure to the Unknown sentinel outcome.
func degraded(err error) Outcome {
	log.Error().Err(err).Msg("classification degraded")
	return Outcome{
		Verdict: domain.Verdict{
			Label:      domain.LabelUnknown,
			Confidence: 0.0,
			Reason:     "Error: " + err.Error(),
		},
		Degraded: true,
	}
}

// geminiAPI adapts *genai.Client to the fileAPI seam.
type geminiAPI struct {
	client *genai.Client
	model  string
}

func (g *geminiAPI) UploadFile(ctx context.Context, path, mimeType string) (*genai.File, error) {
	return g.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{MIMEType: mimeType})
}

func (g *geminiAPI) GetFile(ctx context.Context, name string) (*genai.File, error) {
	return g.client.GetFile(ctx, name)
}

func (g *geminiAPI) DeleteFile(ctx context.Context, name string) error {
	return g.client.DeleteFile(ctx, name)
}

func (g *geminiAPI) Generate(ctx context.Context, file *genai.File, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.FileData{URI: file.URI, MIMEType: file.MIMEType},
		genai.Text(prompt),
	)
	if err != nil {
		return "", err
	}
	return responseText(resp)
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty model response")
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			out += string(t)
		}
	}
	if out == "" {
		return "", errors.New("model response contains no text parts")
	}
	return out, nil
}

// NewGeminiClient builds the underlying Gemini client from an API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	return genai.NewClient(ctx, option.WithAPIKey(apiKey))
}
