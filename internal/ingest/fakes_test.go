package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// fakeTranscoder is a test double for Transcoder. It writes a fixed number
// of bytes to a temp output path, or returns a canned error.
type fakeTranscoder struct {
	mu         sync.Mutex
	outputSize int
	failWith   error
	calls      int
}

func (f *fakeTranscoder) Transcode(ctx context.Context, inputPath string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.failWith != nil {
		return "", f.failWith
	}

	out, err := os.CreateTemp("", "fake-transcode-*.m4a")
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := out.Write(make([]byte, f.outputSize)); err != nil {
		return "", err
	}
	return out.Name(), nil
}

// fakeBlobStore is an in-memory BlobStore.
type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPut  error
	putDelay func()
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, body io.Reader, mime string) error {
	if f.putDelay != nil {
		f.putDelay()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.failPut != nil {
		return f.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) DeleteMany(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objects, k)
	}
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeBlobStore) TestAccess(ctx context.Context) error {
	return nil
}

// fakeDocStore is an in-memory DocStore.
type fakeDocStore struct {
	mu          sync.Mutex
	albums      map[string]*AlbumDocument
	tracks      map[string]*TrackDocument
	nextID      int
	failInsert  error
	findDelay   func()
	albumsByKey map[string]string // "name|artist" -> id
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		albums:      make(map[string]*AlbumDocument),
		tracks:      make(map[string]*TrackDocument),
		albumsByKey: make(map[string]string),
	}
}

func (f *fakeDocStore) FindAlbum(ctx context.Context, name, artist string) (*AlbumDocument, error) {
	if f.findDelay != nil {
		f.findDelay()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.albumsByKey[name+"|"+artist]
	if !ok {
		return nil, nil
	}
	return f.albums[id], nil
}

func (f *fakeDocStore) InsertAlbum(ctx context.Context, doc *AlbumDocument) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("album-%d", f.nextID)
	doc.ID = id
	f.albums[id] = doc
	f.albumsByKey[doc.Name+"|"+doc.Artist] = id
	return id, nil
}

func (f *fakeDocStore) InsertTrack(ctx context.Context, doc *TrackDocument) (string, error) {
	if f.failInsert != nil {
		return "", f.failInsert
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("track-%d", f.nextID)
	doc.ID = id
	f.tracks[id] = doc
	return id, nil
}

func (f *fakeDocStore) DeleteTrack(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracks, id)
	return nil
}

// fakeProgressSink records every emitted event and keeps last-known
// snapshots, matching the real ProgressSink's semantics.
type fakeProgressSink struct {
	mu         sync.Mutex
	events     []UploadProgress
	snapshots  map[string]UploadProgress
	batchDones int
}

func newFakeProgressSink() *fakeProgressSink {
	return &fakeProgressSink{snapshots: make(map[string]UploadProgress)}
}

func (f *fakeProgressSink) Emit(p UploadProgress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, p)
	f.snapshots[p.ItemID] = p
}

func (f *fakeProgressSink) EmitBatchDone() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchDones++
}

func (f *fakeProgressSink) Snapshot(itemID string) (UploadProgress, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.snapshots[itemID]
	return p, ok
}

func (f *fakeProgressSink) statusesFor(itemID string) []Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Status
	for _, e := range f.events {
		if e.ItemID == itemID {
			out = append(out, e.Status)
		}
	}
	return out
}

var errStub = errors.New("stub failure")
