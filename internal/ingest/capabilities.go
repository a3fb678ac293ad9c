package ingest

import (
	"context"
	"io"
)

// Transcoder is C1: produces a compressed sibling file from a local input
// path. Blocking and CPU-bound; the ItemProcessor calls it directly on the
// drain goroutine, which waits until the transcode returns.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath string) (outputPath string, err error)
}

// BlobStore is C2: put/delete opaque byte objects addressed by key in a
// single bucket, with existence checks and a startup access probe.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, mime string) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	Exists(ctx context.Context, key string) (bool, error)
	TestAccess(ctx context.Context) error
}

// DocStore is C3: typed operations over the tracks and albums collections.
type DocStore interface {
	FindAlbum(ctx context.Context, name, artist string) (*AlbumDocument, error)
	InsertAlbum(ctx context.Context, doc *AlbumDocument) (string, error)
	InsertTrack(ctx context.Context, doc *TrackDocument) (string, error)
	DeleteTrack(ctx context.Context, id string) error
}

// ProgressSink is C4: delivers ordered per-item status updates and a
// terminal batch-done signal to an observer. Delivery is best-effort: a lost
// event never blocks or fails processing. The sink keeps a last-known
// snapshot per item for late subscribers (query_progress).
type ProgressSink interface {
	Emit(progress UploadProgress)
	EmitBatchDone()
	Snapshot(itemID string) (UploadProgress, bool)
}
