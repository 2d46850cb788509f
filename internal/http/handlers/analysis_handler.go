// Analysis HTTP handler.
//
// This file exposes the media analysis endpoint:
//   - POST /analysis   (multipart: user_id, email, mime_type, chat_id?, file)
//
// The handler is transport-thin: it validates the multipart form, opens the
// uploaded file stream, and hands everything to the AnalysisService. Size
// enforcement happens twice: a fast reject on the declared size, then the
// authoritative post-copy check inside the staging store.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trueai/go-detect-backend/internal/http/middleware"
	"github.com/trueai/go-detect-backend/internal/services"
)

// AnalysisService defines the pipeline operation consumed by this handler.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type AnalysisService interface {
	Analyze(ctx context.Context, req services.AnalysisRequest) (*services.AnalysisResult, error)
}

// Analyze handles POST /analysis.
//
// Responses:
//   - 200 with {chat_id, user_message, ai_message}; both messages are
//     always present, even when classification degraded to "Unknown".
//   - 400 for missing form fields or an unsupported MIME type.
//   - 404 when chat_id references a chat that does not exist.
//   - 413 when the upload exceeds the size ceiling.
//   - 500 for storage or persistence failures.
func (h *Handlers) Analyze(c *gin.Context) {
	identity := strings.TrimSpace(c.PostForm("user_id"))
	email := strings.TrimSpace(c.PostForm("email"))
	mimeType := strings.TrimSpace(c.PostForm("mime_type"))
	chatID := c.PostForm("chat_id")

	if identity == "" || email == "" || mimeType == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id, email and mime_type are required")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "file is required")
		return
	}

	middleware.ObserveUploadSize(fh.Size)

	src, err := fh.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "failed to read upload")
		return
	}
	defer src.Close()

	res, err := h.analysisSvc.Analyze(c.Request.Context(), services.AnalysisRequest{
		Identity:     identity,
		Email:        email,
		MimeType:     mimeType,
		ChatID:       chatID,
		File:         src,
		DeclaredSize: fh.Size,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPayloadTooLarge):
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "file size exceeds the 50MB limit")
		case errors.Is(err, services.ErrInvalidMediaKind):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "mime_type must be image/*, video/* or audio/*")
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnalysisFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, res)
}
