package ingest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempInput(t *testing.T, contents string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "in-*.wav")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func newTestProcessor(transcoder Transcoder, blobs *fakeBlobStore, docs *fakeDocStore, sink *fakeProgressSink, cancel *CancelToken) *ItemProcessor {
	return &ItemProcessor{
		Transcoder: transcoder,
		Blobs:      blobs,
		Docs:       docs,
		Progress:   sink,
		Cancel:     cancel,
	}
}

// S1 — Happy path.
func TestProcessor_HappyPath(t *testing.T) {
	inputPath := writeTempInput(t, "012345678901234567890123") // 24 bytes
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	item := &QueueItem{
		ItemID: "item-1",
		Input: UploadItemInput{
			ClientID: "client-1",
			Path:     inputPath,
			Metadata: FinalizedMetadata{Title: "Track A", Artist: "X", Album: "Alb", Year: 2020},
		},
		Metadata: FinalizedMetadata{Title: "Track A", Artist: "X", Album: "Alb", Year: 2020},
	}

	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusComplete, terminal)
	assert.Len(t, blobs.objects, 2)
	assert.NotNil(t, item.DocTrackID)
	require.Len(t, docs.tracks, 1)
	require.Len(t, docs.albums, 1)

	var album *AlbumDocument
	for _, a := range docs.albums {
		album = a
	}
	assert.Equal(t, "Alb", album.Name)
	assert.Equal(t, "X", album.Artist)

	// Invariant 2: state monotonicity.
	statuses := sink.statusesFor("item-1")
	assert.Equal(t, []Status{StatusPending, StatusTranscoding, StatusUploadingOriginal, StatusUploadingCompressed, StatusStoringMetadata, StatusComplete}, statuses)

	// Invariant 3: no dangling temp file.
	_, err := os.Stat(*item.TempTranscodedPath)
	assert.True(t, os.IsNotExist(err))
}

// S2 — Transcode failure.
func TestProcessor_TranscodeFailure(t *testing.T) {
	inputPath := writeTempInput(t, "stub")
	transcoder := &fakeTranscoder{failWith: errStub}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	item := &QueueItem{ItemID: "item-2", Input: UploadItemInput{Path: inputPath}}

	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusError, terminal)
	assert.Empty(t, blobs.objects)
	assert.Empty(t, docs.tracks)
	assert.Nil(t, item.TempTranscodedPath)
}

// S4 — Doc insert failure.
func TestProcessor_DocInsertFailure(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	docs.failInsert = errStub
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	item := &QueueItem{
		ItemID: "item-4",
		Input:  UploadItemInput{Path: inputPath, Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"}},
		Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"},
	}

	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusError, terminal)
	// Invariant 5: no dangling original/compressed blob.
	assert.Empty(t, blobs.objects)
	assert.Nil(t, item.TempTranscodedPath)
	if item.TempTranscodedPath != nil {
		_, err := os.Stat(*item.TempTranscodedPath)
		assert.True(t, os.IsNotExist(err))
	}
	// Album may remain (documented concession).
	assert.Len(t, docs.albums, 1)
}

// S5 — Duplicate album across two items in the same batch.
func TestProcessor_DuplicateAlbumConcession(t *testing.T) {
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	for i := 0; i < 2; i++ {
		inputPath := writeTempInput(t, "stub-data")
		transcoder := &fakeTranscoder{outputSize: 8}
		p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
		item := &QueueItem{
			ItemID:   "item-dup",
			Input:    UploadItemInput{Path: inputPath, Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"}},
			Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"},
		}
		terminal := p.Process(context.Background(), item)
		assert.Equal(t, StatusComplete, terminal)
	}

	assert.LessOrEqual(t, len(docs.albums), 2)
	assert.Len(t, docs.tracks, 2)
}

// Invariant 1: terminal uniqueness — exactly one terminal event per item.
func TestProcessor_TerminalUniqueness(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	item := &QueueItem{ItemID: "item-term", Input: UploadItemInput{Path: inputPath}}
	p.Process(context.Background(), item)

	statuses := sink.statusesFor("item-term")
	terminalCount := 0
	for _, s := range statuses {
		if s == StatusComplete || s == StatusCancelled || s == StatusError {
			terminalCount++
		}
	}
	assert.Equal(t, 1, terminalCount)
}

// Spec §5 — an upload that outlives its scaled timeout fails the stage as
// "timeout" and runs the same compensating cleanup as any other failure.
func TestProcessor_UploadTimeout(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	blobs.putDelay = func() {
		time.Sleep(5 * time.Millisecond)
	}
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := &ItemProcessor{
		Transcoder:    transcoder,
		Blobs:         blobs,
		Docs:          docs,
		Progress:      sink,
		Cancel:        cancel,
		UploadTimeout: time.Microsecond,
	}
	item := &QueueItem{ItemID: "item-timeout", Input: UploadItemInput{Path: inputPath}}

	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusError, terminal)
	progress, ok := sink.Snapshot("item-timeout")
	require.True(t, ok)
	assert.Equal(t, "timeout", progress.ErrorMessage)
	// Invariant 5: no dangling blob or temp file survives the failed upload.
	assert.Empty(t, blobs.objects)
	assert.Nil(t, item.TempTranscodedPath)
}

// Spec §5 — a document-store call that outlives ControlOpTimeout also fails
// the stage as "timeout", exercising the control-op budget separately from
// the upload budget.
func TestProcessor_ControlOpTimeout(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	docs.findDelay = func() {
		time.Sleep(5 * time.Millisecond)
	}
	sink := newFakeProgressSink()
	cancel := NewCancelToken()

	p := &ItemProcessor{
		Transcoder:       transcoder,
		Blobs:            blobs,
		Docs:             docs,
		Progress:         sink,
		Cancel:           cancel,
		ControlOpTimeout: time.Microsecond,
	}
	item := &QueueItem{
		ItemID:   "item-control-timeout",
		Input:    UploadItemInput{Path: inputPath, Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"}},
		Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"},
	}

	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusError, terminal)
	progress, ok := sink.Snapshot("item-control-timeout")
	require.True(t, ok)
	assert.Equal(t, "timeout", progress.ErrorMessage)
	assert.Empty(t, docs.tracks)
}

// Cancellation observed before start yields Cancelled with no side effects.
func TestProcessor_CancelledBeforeStart(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	cancel.Set()

	p := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	item := &QueueItem{ItemID: "item-cancel", Input: UploadItemInput{Path: inputPath}}
	terminal := p.Process(context.Background(), item)

	assert.Equal(t, StatusCancelled, terminal)
	assert.Empty(t, blobs.objects)
	assert.Empty(t, docs.tracks)
	assert.Equal(t, 0, transcoder.calls)
}
