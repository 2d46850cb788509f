// Webhook HTTP handler.
//
// This file exposes the identity-provider callback:
//   - POST /webhooks/clerk
//
// The raw body is read and passed untouched to the webhook service together
// with the request headers; signature verification happens there, before
// any field of the event is parsed or trusted.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trueai/go-detect-backend/internal/services"
)

// ClerkWebhook handles POST /webhooks/clerk.
//
// Responses:
//   - 200 {"status":"success"} for any verified event, including types this
//     service does not act on.
//   - 400 when signature verification fails.
//   - 500 when the cascade itself fails.
func (h *Handlers) ClerkWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "failed to read request body")
		return
	}

	if err := h.webhookSvc.HandleEvent(c.Request.Context(), payload, c.Request.Header); err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidSignature, "invalid webhook signature")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}

	ok(c, http.StatusOK, gin.H{"status": "success"})
}
