// Package services – ChatService
//
// This file implements ChatService, which owns chat history retrieval and
// the deletion cascade. Before any chat document is removed, every media
// object referenced by its user messages is resolved to a storage public id
// and a deletion is requested. Object deletions are best-effort: failures
// are logged and collected but never block document removal.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/repo"
	"github.com/trueai/go-detect-backend/internal/storage"
)

// CleanupOutcome records one attempted media-object deletion within a
// cascade. Err is nil on success.
type CleanupOutcome struct {
	PublicID     string
	ResourceType string
	Err          error
}

// DeleteResult summarizes a deletion cascade: how many chat documents were
// removed and the per-object cleanup outcomes that preceded removal.
type DeleteResult struct {
	DeletedChats int64
	Cleanup      []CleanupOutcome
}

// ChatService provides chat history operations and the deletion cascades.
type ChatService struct {
	Repo  ChatRepo
	Store ObjectStore
}

// NewChatService constructs a ChatService.
func NewChatService(r ChatRepo, store ObjectStore) *ChatService {
	return &ChatService{Repo: r, Store: store}
}

// List returns all chats for a user's email, newest first.
func (s *ChatService) List(ctx context.Context, email string) ([]domain.Chat, error) {
	return s.Repo.ListChatsByEmail(ctx, email)
}

// Get fetches a single chat by id, returning ErrChatNotFound when the
// reference does not resolve.
func (s *ChatService) Get(ctx context.Context, chatID string) (*domain.Chat, error) {
	chat, err := s.Repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, err
	}
	return chat, nil
}

// Delete removes one chat after cleaning up its media. The owner-email
// predicate is checked before anything is touched: a chat belonging to a
// different user is left intact, its media included, and the result reports
// zero deletions.
func (s *ChatService) Delete(ctx context.Context, email, chatID string) (*DeleteResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("chat.id", chatID)),
	)
	defer span.End()

	chat, err := s.Repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &DeleteResult{}, nil
		}
		return nil, err
	}
	if chat.UserEmail != email {
		return &DeleteResult{}, nil
	}

	cleanup := s.cleanupChatMedia(ctx, chat)
	n, err := s.Repo.DeleteChat(ctx, chatID, email)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedChats: n, Cleanup: cleanup}, nil
}

// DeleteAll removes every chat owned by email, media first.
func (s *ChatService) DeleteAll(ctx context.Context, email string) (*DeleteResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "DeleteAll")
	defer span.End()

	chats, err := s.Repo.ListChatsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	var cleanup []CleanupOutcome
	for i := range chats {
		cleanup = append(cleanup, s.cleanupChatMedia(ctx, &chats[i])...)
	}
	n, err := s.Repo.DeleteChatsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{DeletedChats: n, Cleanup: cleanup}, nil
}

// DeleteAllForIdentity removes every chat keyed by the identity-provider
// subject id. Used by the account-deletion webhook, which carries only the
// subject id, never an email.
func (s *ChatService) DeleteAllForIdentity(ctx context.Context, identity string) (*DeleteResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "DeleteAllForIdentity")
	defer span.End()

	chats, err := s.Repo.ListChatsByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	var cleanup []CleanupOutcome
	for i := range chats {
		cleanup = append(cleanup, s.cleanupChatMedia(ctx, &chats[i])...)
	}
	n, err := s.Repo.DeleteChatsByIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("deleted", n).Str("identity", identity).Msg("account-deletion cascade complete")
	return &DeleteResult{DeletedChats: n, Cleanup: cleanup}, nil
}

// cleanupChatMedia requests deletion of every storage object referenced by
// the chat's user messages. URLs that do not match the canonical upload
// shape mean "nothing to delete" and are skipped silently.
func (s *ChatService) cleanupChatMedia(ctx context.Context, chat *domain.Chat) []CleanupOutcome {
	var out []CleanupOutcome
	for _, msg := range chat.Messages {
		if msg.Role != domain.RoleUser {
			continue
		}
		publicID, ok := storage.ExtractPublicID(msg.Content)
		if !ok {
			continue
		}
		rt := storage.ResourceType(msg.Kind)
		err := s.Store.Destroy(ctx, publicID, rt)
		if err != nil {
			log.Error().Err(err).
				Str("public_id", publicID).
				Str("chat_id", chat.ID.Hex()).
				Msg("media cleanup failed; continuing cascade")
		}
		out = append(out, CleanupOutcome{PublicID: publicID, ResourceType: rt, Err: err})
	}
	return out
}
