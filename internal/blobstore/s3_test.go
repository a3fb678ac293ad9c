package blobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreStruct(t *testing.T) {
	s := &Store{bucket: "test-bucket", baseURL: "https://cdn.test.com"}

	assert.Equal(t, "test-bucket", s.bucket)
	assert.Equal(t, "https://cdn.test.com", s.baseURL)
}

func TestPutAlbumArtKey(t *testing.T) {
	tests := []struct {
		name     string
		albumID  string
		ext      string
		expected string
	}{
		{"extension without dot", "album-1", "jpg", "albums/artwork/album-1.jpg"},
		{"extension with leading dot", "album-2", ".png", "albums/artwork/album-2.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := albumArtKey(tt.albumID, tt.ext)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		key      string
		expected string
	}{
		{"with base URL", "https://cdn.test.com", "tracks/original/song.wav", "https://cdn.test.com/tracks/original/song.wav"},
		{"trailing slash trimmed", "https://cdn.test.com/", "tracks/aac/song.m4a", "https://cdn.test.com/tracks/aac/song.m4a"},
		{"no base URL configured", "", "tracks/original/song.wav", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{baseURL: tt.baseURL}
			assert.Equal(t, tt.expected, s.PublicURL(tt.key))
		})
	}
}
