// Chat HTTP handlers.
//
// This file exposes REST endpoints for chat history:
//   - GET    /chats            (list by email, newest first)
//   - GET    /chats/:id        (full chat)
//   - DELETE /chats/:id        (delete one, owner-checked, media cascade)
//   - DELETE /chats            (delete all for a user, media cascade)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses. Delete endpoints
// report "not found" softly in the response body rather than as a hard
// failure, matching the cascade's best-effort posture.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trueai/go-detect-backend/internal/domain"
	"github.com/trueai/go-detect-backend/internal/services"
)

// ChatService defines chat history operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type ChatService interface {
	List(ctx context.Context, email string) ([]domain.Chat, error)
	Get(ctx context.Context, chatID string) (*domain.Chat, error)
	Delete(ctx context.Context, email, chatID string) (*services.DeleteResult, error)
	DeleteAll(ctx context.Context, email string) (*services.DeleteResult, error)
}

// WebhookService defines the identity-provider event operation consumed by
// the webhook handler.
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, headers http.Header) error
}

// Handlers groups the HTTP endpoints for analysis, chat history, and
// webhooks. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	analysisSvc AnalysisService
	chatSvc     ChatService
	webhookSvc  WebhookService
}

// New constructs a Handlers instance bound to the given services.
func New(analysisSvc AnalysisService, chatSvc ChatService, webhookSvc WebhookService) *Handlers {
	return &Handlers{analysisSvc: analysisSvc, chatSvc: chatSvc, webhookSvc: webhookSvc}
}

// DeleteOutcome is the response body for delete endpoints.
type DeleteOutcome struct {
	Message      string `json:"message"`
	DeletedChats int64  `json:"deleted_chats"`
}

// requiredEmail pulls the email query parameter, failing the request with a
// 400 when absent.
func requiredEmail(c *gin.Context) (string, bool) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email is required")
		return "", false
	}
	return email, true
}

// ListChats handles GET /chats?email=...
func (h *Handlers) ListChats(c *gin.Context) {
	email, okEmail := requiredEmail(c)
	if !okEmail {
		return
	}
	chats, err := h.chatSvc.List(c.Request.Context(), email)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, chats)
}

// GetChat handles GET /chats/:id.
func (h *Handlers) GetChat(c *gin.Context) {
	chat, err := h.chatSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrChatNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, chat)
}

// DeleteChat handles DELETE /chats/:id?email=...
//
// A chat that does not exist, or belongs to another user, yields a 200 with
// a "Chat not found" message and zero deletions; nothing is touched.
func (h *Handlers) DeleteChat(c *gin.Context) {
	email, okEmail := requiredEmail(c)
	if !okEmail {
		return
	}
	res, err := h.chatSvc.Delete(c.Request.Context(), email, c.Param("id"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	if res.DeletedChats == 0 {
		ok(c, http.StatusOK, DeleteOutcome{Message: "Chat not found"})
		return
	}
	ok(c, http.StatusOK, DeleteOutcome{Message: "Chat deleted successfully", DeletedChats: res.DeletedChats})
}

// DeleteAllChats handles DELETE /chats?email=...
func (h *Handlers) DeleteAllChats(c *gin.Context) {
	email, okEmail := requiredEmail(c)
	if !okEmail {
		return
	}
	res, err := h.chatSvc.DeleteAll(c.Request.Context(), email)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	if res.DeletedChats == 0 {
		ok(c, http.StatusOK, DeleteOutcome{Message: "No chats found to delete"})
		return
	}
	ok(c, http.StatusOK, DeleteOutcome{Message: "All chats deleted successfully", DeletedChats: res.DeletedChats})
}
