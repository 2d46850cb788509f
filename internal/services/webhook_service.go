// Package services – WebhookService
//
// This file handles signed events from the identity provider (Clerk,
// delivered through svix). The signature is verified against the pre-shared
// secret before a single byte of the payload is trusted or parsed. A
// verified "user.deleted" event triggers the identity-keyed deletion
// cascade; every other verified event type is acknowledged and ignored so
// the endpoint never rejects event types it does not understand.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/rs/zerolog/log"
)

// eventUserDeleted is the identity-provider event type that triggers the
// account-deletion cascade.
const eventUserDeleted = "user.deleted"

// eventVerifier abstracts svix signature verification for tests.
type eventVerifier interface {
	Verify(payload []byte, headers http.Header) error
}

// WebhookService verifies and dispatches identity-provider events.
type WebhookService struct {
	verifier eventVerifier
	chats    *ChatService
}

// NewWebhookService builds a WebhookService from the webhook signing secret.
func NewWebhookService(secret string, chats *ChatService) (*WebhookService, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("configure webhook verifier: %w", err)
	}
	return &WebhookService{verifier: wh, chats: chats}, nil
}

// webhookEvent is the subset of the event envelope this service reads.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// HandleEvent verifies and processes one raw webhook delivery.
//
// Returns ErrInvalidSignature when verification fails; the caller surfaces
// that as a client error and nothing else happens. Unknown verified event
// types return nil with no state change.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.verifier.Verify(payload, headers); err != nil {
		log.Error().Err(err).Msg("webhook verification failed")
		return ErrInvalidSignature
	}

	var ev webhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("decode webhook event: %w", err)
	}

	if ev.Type != eventUserDeleted {
		log.Debug().Str("type", ev.Type).Msg("ignoring webhook event")
		return nil
	}

	res, err := s.chats.DeleteAllForIdentity(ctx, ev.Data.ID)
	if err != nil {
		return err
	}
	log.Info().
		Int64("deleted_chats", res.DeletedChats).
		Int("media_deletions", len(res.Cleanup)).
		Str("identity", ev.Data.ID).
		Msg("processed account-deletion event")
	return nil
}
