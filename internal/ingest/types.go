// Package ingest implements the ingestion pipeline core: transcoding, dual
// blob upload, and document-store insertion for a batch of local audio
// files, with per-item progress reporting and cooperative cancellation.
package ingest

import "time"

// FinalizedMetadata carries the caller-finalized tags for one item. The core
// treats these as authoritative and never re-reads tags from the file.
type FinalizedMetadata struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	Duration    float64
	Genre       []string
	Composer    string
	Year        int
	Comments    string
}

// UploadItemInput is the caller-supplied description of one file to ingest.
type UploadItemInput struct {
	ClientID string
	Path     string
	Metadata FinalizedMetadata
}

// Status is the enumerated state of a QueueItem's progress through the
// pipeline. Transitions form a linear chain with two terminal off-ramps
// (Cancelled, Error) reachable from any intermediate state.
type Status string

const (
	StatusPending             Status = "pending"
	StatusTranscoding         Status = "transcoding"
	StatusUploadingOriginal   Status = "uploading_original"
	StatusUploadingCompressed Status = "uploading_compressed"
	StatusStoringMetadata     Status = "storing_metadata"
	StatusComplete            Status = "complete"
	StatusCancelled           Status = "cancelled"
	StatusError               Status = "error"
)

// QueueItem is core-owned and mutated only by the drain task. The four
// pointer-typed fields are populated progressively; a non-nil field means
// the corresponding side effect has been committed and must be undone on
// failure or cancellation.
type QueueItem struct {
	ItemID   string
	Input    UploadItemInput
	Metadata FinalizedMetadata

	TempTranscodedPath *string
	BlobKeyOriginal    *string
	BlobKeyCompressed  *string
	DocTrackID         *string
}

// UploadProgress is the per-item status snapshot emitted to observers.
type UploadProgress struct {
	ItemID       string    `json:"item_id"`
	OriginalPath string    `json:"original_path"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Title        string    `json:"title"`
	Album        string    `json:"album"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TrackDocument is the shape written to the "tracks" collection.
type TrackDocument struct {
	ID                string
	Title             string
	Filename          string
	Duration          float64
	TrackNumber       int
	AlbumID           string
	Artists           []string
	OriginalPath      string
	MimeType          string
	FileSize          int64
	Genres            []string
	Composer          string
	Comments          string
	DateAdded         time.Time
	Extension         string
	BlobKeyOriginal   string
	BlobKeyCompressed string
}

// AlbumDocument is the shape written to the "albums" collection.
// Uniqueness key for find-or-create is (Name, Artist).
type AlbumDocument struct {
	ID        string
	Name      string
	Artist    string
	Year      int
	Genres    []string
	ArtPath   *string
	DateAdded time.Time
}
