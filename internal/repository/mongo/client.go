package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const connectTimeout = 10 * time.Second

// Collection names used by the repositories.
const (
	TemplatesCollection = "templates"
	EventsCollection    = "events"
)

// Connect opens a client for the given URI, verifies the connection and
// ensures the indexes the repositories rely on.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	if err := EnsureTemplateIndexes(ctx, db.Collection(TemplatesCollection)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	if err := EnsureEventIndexes(ctx, db.Collection(EventsCollection)); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}
