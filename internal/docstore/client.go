// Package docstore implements the DocStore capability over MongoDB,
// storing finalized track and album metadata.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wizziwig82/musiclib-ingest/internal/config"
)

const (
	albumsCollection = "albums"
	tracksCollection = "tracks"
)

// Store implements ingest.DocStore over a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB using cfg.MongoURI, selects cfg.MongoDB, and
// ensures the collection indexes used by find-or-create and lookups exist.
func Connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(cfg.MongoDB)}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensuring indexes: %w", err)
	}
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	tracks := s.db.Collection(tracksCollection)
	if _, err := tracks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "title", Value: "text"}, {Key: "genre", Value: "text"}},
	}); err != nil {
		return fmt.Errorf("creating tracks text index: %w", err)
	}
	if _, err := tracks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "album_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating tracks album_id index: %w", err)
	}

	albums := s.db.Collection(albumsCollection)
	if _, err := albums.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: "text"}},
	}); err != nil {
		return fmt.Errorf("creating albums text index: %w", err)
	}
	if _, err := albums.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "artist", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("creating albums name/artist index: %w", err)
	}
	return nil
}
