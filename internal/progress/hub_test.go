package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
)

func TestNewHub(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.snapshots)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.metrics)
}

func TestHub_EmitStoresSnapshot(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	hub.Emit(ingest.UploadProgress{ItemID: "item-1", Status: ingest.StatusTranscoding})

	p, ok := hub.Snapshot("item-1")
	assert.True(t, ok)
	assert.Equal(t, ingest.StatusTranscoding, p.Status)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestHub_SnapshotMissingItem(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	_, ok := hub.Snapshot("does-not-exist")
	assert.False(t, ok)
}

func TestHub_EmitOverwritesPreviousSnapshot(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	hub.Emit(ingest.UploadProgress{ItemID: "item-1", Status: ingest.StatusPending})
	hub.Emit(ingest.UploadProgress{ItemID: "item-1", Status: ingest.StatusComplete})

	p, ok := hub.Snapshot("item-1")
	assert.True(t, ok)
	assert.Equal(t, ingest.StatusComplete, p.Status)
}

func TestHub_EmitBatchDoneDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	done := make(chan struct{})
	go func() {
		hub.EmitBatchDone()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitBatchDone blocked")
	}
}
