package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
)

func TestToAlbumBSON_AssignsProvidedID(t *testing.T) {
	now := time.Now()
	doc := &ingest.AlbumDocument{Name: "Alb", Artist: "X", Year: 2020, DateAdded: now}

	rec := toAlbumBSON(doc, "album-1")

	assert.Equal(t, "album-1", rec.ID)
	assert.Equal(t, "Alb", rec.Name)
	assert.Equal(t, "X", rec.Artist)
	assert.Equal(t, 2020, rec.Year)
	assert.Equal(t, now, rec.DateAdded)
}

func TestAlbumBSONRoundTrip(t *testing.T) {
	art := "art/path.jpg"
	doc := &ingest.AlbumDocument{Name: "Alb", Artist: "X", ArtPath: &art}

	rec := toAlbumBSON(doc, "album-2")
	back := fromAlbumBSON(&rec)

	assert.Equal(t, "album-2", back.ID)
	assert.Equal(t, doc.Name, back.Name)
	assert.Equal(t, doc.Artist, back.Artist)
	assert.Equal(t, doc.ArtPath, back.ArtPath)
}

func TestToTrackBSON_AssignsProvidedID(t *testing.T) {
	doc := &ingest.TrackDocument{
		Title:           "Track A",
		Filename:        "track_a.m4a",
		AlbumID:         "album-1",
		OriginalPath:    "/tmp/in.wav",
		MimeType:        "audio/wav",
		FileSize:        1024,
		BlobKeyOriginal: "tracks/original/track_a.wav",
	}

	rec := toTrackBSON(doc, "track-1")

	assert.Equal(t, "track-1", rec.ID)
	assert.Equal(t, "Track A", rec.Title)
	assert.Equal(t, "album-1", rec.AlbumID)
	assert.Equal(t, int64(1024), rec.FileSize)
}
