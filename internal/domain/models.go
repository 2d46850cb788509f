// Package domain defines the persistence models for chats and their messages.
// Chats are stored as single MongoDB documents that embed the full ordered
// message history, so a message pair can be appended with one atomic update.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message roles. Every persisted pair consists of one RoleUser message
// (the uploaded media) followed by one RoleAssistant message (the verdict).
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MediaKind identifies the kind of media a chat message refers to. It selects
// the storage folder, the storage provider's resource category, and the
// classification prompt variant.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)

// ParseMediaKind validates a client-supplied media kind string.
func ParseMediaKind(s string) (MediaKind, error) {
	switch MediaKind(strings.ToLower(strings.TrimSpace(s))) {
	case MediaImage:
		return MediaImage, nil
	case MediaVideo:
		return MediaVideo, nil
	case MediaAudio:
		return MediaAudio, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// MediaKindFromMIME derives the media kind from a MIME type such as
// "image/png" or "video/mp4". Returns an error for anything that is not
// image, video, or audio.
func MediaKindFromMIME(mime string) (MediaKind, error) {
	prefix, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(mime)), "/")
	return ParseMediaKind(prefix)
}

// Verdict is the structured classification extracted from the model response.
//
// Confidence is stored exactly as the model reported it; the pipeline does not
// clamp or reject out-of-range values.
type Verdict struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Verdict labels. LabelUnknown is the sentinel used when classification fails.
const (
	LabelAI      = "AI"
	LabelReal    = "Real"
	LabelUnknown = "Unknown"
)

// Message is a single entry in a chat's message sequence.
//
// Content holds the durable media URL for both roles. The verdict fields
// (Label, Confidence, Reason) are set only on assistant messages.
type Message struct {
	ID         string    `json:"id"                   bson:"id"`
	Role       string    `json:"role"                 bson:"role"`
	Kind       MediaKind `json:"type"                 bson:"type"`
	Content    string    `json:"content"              bson:"content"`
	Label      string    `json:"label,omitempty"      bson:"label,omitempty"`
	Confidence *float64  `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Reason     string    `json:"reason,omitempty"     bson:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"           bson:"created_at"`
}

// Chat is a conversation owned by exactly one user. UserIdentity is the
// identity provider's subject id (used by the account-deletion cascade);
// UserEmail keys the user-facing list and delete operations.
type Chat struct {
	ID           primitive.ObjectID `json:"id"            bson:"_id,omitempty"`
	UserIdentity string             `json:"user_identity" bson:"user_identity"`
	UserEmail    string             `json:"user_email"    bson:"user_email"`
	Title        string             `json:"title"         bson:"title"`
	CreatedAt    time.Time          `json:"created_at"    bson:"created_at"`
	Messages     []Message          `json:"messages"      bson:"messages"`
}

// NewMessagePair builds the atomic user/assistant message pair for one
// analysis of the media stored at url. The pair is always persisted as a
// unit; callers must never write one half alone.
func NewMessagePair(kind MediaKind, url string, v Verdict) (user Message, assistant Message) {
	now := time.Now().UTC()
	conf := v.Confidence
	user = Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Kind:      kind,
		Content:   url,
		CreatedAt: now,
	}
	assistant = Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Kind:       kind,
		Content:    url,
		Label:      v.Label,
		Confidence: &conf,
		Reason:     v.Reason,
		CreatedAt:  now,
	}
	return user, assistant
}
