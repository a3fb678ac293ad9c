package docstore

import "time"

// albumBSON is the on-disk shape of an album document. Mongo's ObjectID is
// avoided in favor of a string ID: the caller's, or a UUID that InsertAlbum
// generates before the insert and returns.
type albumBSON struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Artist    string    `bson:"artist"`
	Year      int       `bson:"year,omitempty"`
	Genres    []string  `bson:"genres,omitempty"`
	ArtPath   *string   `bson:"art_path,omitempty"`
	DateAdded time.Time `bson:"date_added"`
}

// trackBSON is the on-disk shape of a track document.
type trackBSON struct {
	ID                string    `bson:"_id"`
	Title             string    `bson:"title"`
	Filename          string    `bson:"filename"`
	Duration          float64   `bson:"duration,omitempty"`
	TrackNumber       int       `bson:"track_number,omitempty"`
	AlbumID           string    `bson:"album_id"`
	Artists           []string  `bson:"artists,omitempty"`
	OriginalPath      string    `bson:"original_path"`
	MimeType          string    `bson:"mime_type"`
	FileSize          int64     `bson:"file_size"`
	Genres            []string  `bson:"genres,omitempty"`
	Composer          string    `bson:"composer,omitempty"`
	Comments          string    `bson:"comments,omitempty"`
	DateAdded         time.Time `bson:"date_added"`
	Extension         string    `bson:"extension"`
	BlobKeyOriginal   string    `bson:"blob_key_original"`
	BlobKeyCompressed string    `bson:"blob_key_compressed,omitempty"`
}
