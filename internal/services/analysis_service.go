// Package services – AnalysisService
//
// This file implements the per-request media analysis pipeline: stage the
// inbound file locally, upload it to durable storage, classify it with the
// inference orchestrator, and persist the resulting message pair. The staged
// temp file is released on every exit path; the inference-side file handle
// is released inside the classifier. A storage-upload failure aborts the
// request, while a classification failure degrades to the Unknown sentinel
// so the exchange is still recorded.
package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/llm"
	"github.com/trueai/go-detect-backend/internal/repo"
	"github.com/trueai/go-detect-backend/internal/staging"
)

// ChatRepo defines the repository contract required by the services layer.
// Implementations are responsible for persistence of chat documents.
type ChatRepo interface {
	// CreateChat inserts a new chat seeded with the given messages.
	CreateChat(ctx context.Context, identity, email, title string, msgs []domain.Message) (*domain.Chat, error)

	// AppendMessages atomically pushes messages onto an existing chat.
	AppendMessages(ctx context.Context, chatID string, msgs []domain.Message) error

	// GetChat fetches a chat by its id token.
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)

	// ListChatsByEmail returns a user's chats, newest first.
	ListChatsByEmail(ctx context.Context, email string) ([]domain.Chat, error)

	// ListChatsByIdentity returns chats keyed by identity-provider subject id.
	ListChatsByIdentity(ctx context.Context, identity string) ([]domain.Chat, error)

	// DeleteChat removes one chat, enforcing the owner-email predicate.
	DeleteChat(ctx context.Context, chatID, ownerEmail string) (int64, error)

	// DeleteChatsByEmail removes every chat owned by email.
	DeleteChatsByEmail(ctx context.Context, email string) (int64, error)

	// DeleteChatsByIdentity removes every chat for a subject id.
	DeleteChatsByIdentity(ctx context.Context, identity string) (int64, error)
}

// ObjectStore is the durable media storage contract consumed by services.
type ObjectStore interface {
	// Upload stores a staged file and returns its durable URL.
	Upload(ctx context.Context, path string, kind domain.MediaKind) (string, error)
	// Destroy best-effort deletes an object by its public id.
	Destroy(ctx context.Context, publicID, resourceType string) error
}

// MediaClassifier is the inference contract consumed by AnalysisService.
type MediaClassifier interface {
	Classify(ctx context.Context, path, mimeType string, kind domain.MediaKind) llm.Outcome
}

// AnalysisRequest carries one inbound analysis submission.
type AnalysisRequest struct {
	Identity     string // identity-provider subject id
	Email        string
	MimeType     string
	ChatID       string // empty or placeholder means "start a new chat"
	File         io.Reader
	DeclaredSize int64
}

// AnalysisResult is returned to the HTTP layer after a successful pipeline
// run. Both messages are always present, even for degraded classifications.
type AnalysisResult struct {
	ChatID      string         `json:"chat_id"`
	UserMessage domain.Message `json:"user_message"`
	AIMessage   domain.Message `json:"ai_message"`
}

// AnalysisService coordinates the staging, storage, inference, and
// persistence steps of one analysis request.
type AnalysisService struct {
	Repo       ChatRepo
	Store      ObjectStore
	Classifier MediaClassifier
	Staging    *staging.Store
}

// titleCaser capitalizes the media kind in generated chat titles.
var titleCaser = cases.Title(language.English)

// Analyze runs the full pipeline for one submission.
//
// The chat branch is two-way: no usable chat reference creates a new chat
// seeded with the message pair; otherwise the pair is appended to the
// referenced chat (ErrChatNotFound when it does not resolve).
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	tr := otel.Tracer("services/AnalysisService")
	kind, err := domain.MediaKindFromMIME(req.MimeType)
	if err != nil {
		return nil, ErrInvalidMediaKind
	}
	ctx, span := tr.Start(ctx, "Analyze",
		trace.WithAttributes(
			attribute.String("media.kind", string(kind)),
			attribute.String("user.identity", req.Identity),
		),
	)
	defer span.End()

	staged, err := s.Staging.Save(req.File, req.DeclaredSize)
	if err != nil {
		if errors.Is(err, staging.ErrPayloadTooLarge) {
			return nil, ErrPayloadTooLarge
		}
		return nil, err
	}
	defer staged.Close()

	url, err := s.Store.Upload(ctx, staged.Path, kind)
	if err != nil {
		// A lost storage upload fails the whole request; there is no
		// durable URL to hang a chat message on.
		return nil, err
	}
	log.Info().Str("url", url).Str("kind", string(kind)).Msg("media uploaded to storage")

	outcome := s.Classifier.Classify(ctx, staged.Path, req.MimeType, kind)
	if outcome.Degraded {
		log.Warn().Str("reason", outcome.Verdict.Reason).Msg("persisting degraded classification")
	}

	userMsg, aiMsg := domain.NewMessagePair(kind, url, outcome.Verdict)
	pair := []domain.Message{userMsg, aiMsg}

	chatID := strings.TrimSpace(req.ChatID)
	if isPlaceholderChatRef(chatID) {
		chat, err := s.Repo.CreateChat(ctx, req.Identity, req.Email, generatedTitle(kind), pair)
		if err != nil {
			return nil, err
		}
		chatID = chat.ID.Hex()
	} else {
		if err := s.Repo.AppendMessages(ctx, chatID, pair); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrChatNotFound
			}
			return nil, err
		}
	}

	return &AnalysisResult{ChatID: chatID, UserMessage: userMsg, AIMessage: aiMsg}, nil
}

// isPlaceholderChatRef reports whether the chat reference means "no chat".
// Frontends send the literal "null" when no chat is selected.
func isPlaceholderChatRef(ref string) bool {
	return ref == "" || strings.EqualFold(ref, "null")
}

// generatedTitle builds the seed title for a new chat, e.g. "Video Analysis 14:05".
func generatedTitle(kind domain.MediaKind) string {
	return titleCaser.String(string(kind)) + " Analysis " + time.Now().Format("15:04")
}
