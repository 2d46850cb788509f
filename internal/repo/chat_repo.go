// Package repo implements the data persistence layer for chat documents.
// This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *mongo.Collection handle.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a chat is not found (or an id token does not parse as an
//     ObjectID), functions return ErrNotFound.
//   - On driver errors (connectivity, write concerns, etc.), the raw error
//     is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trueai/go-detect-backend/internal/domain"
)

// ErrNotFound is returned when a requested chat does not exist or an id
// token is not a valid ObjectID.
var ErrNotFound = errors.New("chat not found")

// objectID parses a string token into an ObjectID, mapping parse failures
// to ErrNotFound so malformed references behave like missing chats.
func objectID(token string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(token)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}

// CreateChat inserts a new chat document seeded with msgs and returns it
// with the generated id populated.
func CreateChat(ctx context.Context, col *mongo.Collection, identity, email, title string, msgs []domain.Message) (*domain.Chat, error) {
	chat := &domain.Chat{
		UserIdentity: identity,
		UserEmail:    email,
		Title:        title,
		CreatedAt:    time.Now().UTC(),
		Messages:     msgs,
	}
	res, err := col.InsertOne(ctx, chat)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		chat.ID = oid
	}
	return chat, nil
}

// AppendMessages pushes msgs onto the end of the chat's message sequence in
// a single atomic document update. Returns ErrNotFound when the chat id
// resolves to nothing; it never creates a chat implicitly.
func AppendMessages(ctx context.Context, col *mongo.Collection, chatID string, msgs []domain.Message) error {
	id, err := objectID(chatID)
	if err != nil {
		return err
	}
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"messages": bson.M{"$each": msgs}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// GetChat fetches a single chat by its id token, or ErrNotFound.
func GetChat(ctx context.Context, col *mongo.Collection, chatID string) (*domain.Chat, error) {
	id, err := objectID(chatID)
	if err != nil {
		return nil, err
	}
	var chat domain.Chat
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ListChatsByEmail returns all chats owned by email, newest first. An empty
// slice (not nil) is returned when the user has no chats.
func ListChatsByEmail(ctx context.Context, col *mongo.Collection, email string) ([]domain.Chat, error) {
	return listChats(ctx, col, bson.M{"user_email": email})
}

// ListChatsByIdentity returns all chats keyed by identity-provider subject
// id, newest first. Used by the account-deletion cascade.
func ListChatsByIdentity(ctx context.Context, col *mongo.Collection, identity string) ([]domain.Chat, error) {
	return listChats(ctx, col, bson.M{"user_identity": identity})
}

func listChats(ctx context.Context, col *mongo.Collection, filter bson.M) ([]domain.Chat, error) {
	cur, err := col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	out := []domain.Chat{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteChat removes a single chat, requiring the owner-email predicate so
// one user cannot delete another's chat. Returns the deleted count (0 when
// nothing matched; the caller decides how to report that).
func DeleteChat(ctx context.Context, col *mongo.Collection, chatID, ownerEmail string) (int64, error) {
	id, err := objectID(chatID)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteOne(ctx, bson.M{"_id": id, "user_email": ownerEmail})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteChatsByEmail removes every chat owned by email.
func DeleteChatsByEmail(ctx context.Context, col *mongo.Collection, email string) (int64, error) {
	res, err := col.DeleteMany(ctx, bson.M{"user_email": email})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteChatsByIdentity removes every chat keyed by the identity-provider
// subject id.
func DeleteChatsByIdentity(ctx context.Context, col *mongo.Collection, identity string) (int64, error) {
	res, err := col.DeleteMany(ctx, bson.M{"user_identity": identity})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
