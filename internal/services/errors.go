// Package services defines the business logic for media analysis, chat
// history, and the identity-provider webhook cascade. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

var (
	// ErrChatNotFound indicates that the referenced chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrPayloadTooLarge is returned when an upload exceeds the size
	// ceiling, whether by declared hint or actual on-disk size.
	ErrPayloadTooLarge = errors.New("file size exceeds the upload limit")

	// ErrInvalidSignature is returned when a webhook event fails
	// signature verification against the pre-shared secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidMediaKind is returned when a request carries a MIME type
	// that is not image, video, or audio.
	ErrInvalidMediaKind = errors.New("unsupported media type")
)
