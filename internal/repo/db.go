// Package repo implements the data persistence layer for chat documents,
// backed by the official MongoDB driver. This file contains connection
// bootstrapping and index setup for the chats collection.
package repo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatsCollection is the MongoDB collection holding chat documents.
const ChatsCollection = "chats"

// Connect opens a MongoDB client, verifies connectivity with a ping, and
// returns a handle to the named database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the secondary indexes the query paths rely on:
// owner-email listing (newest first) and identity-keyed cascade lookups.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection(ChatsCollection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_identity", Value: 1}}},
	})
	return err
}
