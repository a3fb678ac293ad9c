package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
)

// FindAlbum looks up an album by its (name, artist) uniqueness key. Returns
// (nil, nil) when no match exists.
func (s *Store) FindAlbum(ctx context.Context, name, artist string) (*ingest.AlbumDocument, error) {
	var doc albumBSON
	err := s.db.Collection(albumsCollection).FindOne(ctx, bson.M{"name": name, "artist": artist}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding album %q/%q: %w", name, artist, err)
	}
	return fromAlbumBSON(&doc), nil
}

// InsertAlbum creates a new album document and returns its id.
func (s *Store) InsertAlbum(ctx context.Context, doc *ingest.AlbumDocument) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.New().String()
	}
	rec := toAlbumBSON(doc, id)
	if _, err := s.db.Collection(albumsCollection).InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("inserting album: %w", err)
	}
	return id, nil
}

// InsertTrack creates a new track document and returns its id.
func (s *Store) InsertTrack(ctx context.Context, doc *ingest.TrackDocument) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.New().String()
	}
	rec := toTrackBSON(doc, id)
	if _, err := s.db.Collection(tracksCollection).InsertOne(ctx, rec); err != nil {
		return "", fmt.Errorf("inserting track: %w", err)
	}
	return id, nil
}

// DeleteTrack removes a track document by id. Deleting an id that no
// longer exists is not an error, matching the compensating-cleanup
// contract's best-effort policy.
func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	if _, err := s.db.Collection(tracksCollection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("deleting track %s: %w", id, err)
	}
	return nil
}

func toAlbumBSON(doc *ingest.AlbumDocument, id string) albumBSON {
	return albumBSON{
		ID:        id,
		Name:      doc.Name,
		Artist:    doc.Artist,
		Year:      doc.Year,
		Genres:    doc.Genres,
		ArtPath:   doc.ArtPath,
		DateAdded: doc.DateAdded,
	}
}

func fromAlbumBSON(doc *albumBSON) *ingest.AlbumDocument {
	return &ingest.AlbumDocument{
		ID:        doc.ID,
		Name:      doc.Name,
		Artist:    doc.Artist,
		Year:      doc.Year,
		Genres:    doc.Genres,
		ArtPath:   doc.ArtPath,
		DateAdded: doc.DateAdded,
	}
}

func toTrackBSON(doc *ingest.TrackDocument, id string) trackBSON {
	var artists []string
	if doc.Artists != nil {
		artists = doc.Artists
	}
	return trackBSON{
		ID:                id,
		Title:             doc.Title,
		Filename:          doc.Filename,
		Duration:          doc.Duration,
		TrackNumber:       doc.TrackNumber,
		AlbumID:           doc.AlbumID,
		Artists:           artists,
		OriginalPath:      doc.OriginalPath,
		MimeType:          doc.MimeType,
		FileSize:          doc.FileSize,
		Genres:            doc.Genres,
		Composer:          doc.Composer,
		Comments:          doc.Comments,
		DateAdded:         doc.DateAdded,
		Extension:         doc.Extension,
		BlobKeyOriginal:   doc.BlobKeyOriginal,
		BlobKeyCompressed: doc.BlobKeyCompressed,
	}
}
