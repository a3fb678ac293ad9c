package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForBatchDone(t *testing.T, sink *fakeProgressSink, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		done := sink.batchDones
		sink.mu.Unlock()
		if done > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for batch-done")
}

// S6 — Missing input file.
func TestCoordinator_MissingInputFile(t *testing.T) {
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	processor := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	coord := NewQueueCoordinator(processor, sink, cancel, nil, 16)

	err := coord.SubmitBatch(context.Background(), []UploadItemInput{
		{ClientID: "c1", Path: "/nonexistent/path/does-not-exist.wav"},
	})
	require.NoError(t, err)

	waitForBatchDone(t, sink, time.Second)

	assert.Equal(t, 0, transcoder.calls)
	assert.Empty(t, blobs.objects)
	assert.Empty(t, docs.tracks)
	assert.Equal(t, 1, sink.batchDones)
}

// Admission validation: empty batch is rejected.
func TestCoordinator_RejectsEmptyBatch(t *testing.T) {
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	processor := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	coord := NewQueueCoordinator(processor, sink, cancel, nil, 16)

	err := coord.SubmitBatch(context.Background(), nil)
	assert.Error(t, err)
}

// Happy-path batch through the coordinator: batch-done emitted exactly once.
func TestCoordinator_BatchDoneExactlyOnce(t *testing.T) {
	inputPath := writeTempInput(t, "stub-data")
	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	processor := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	coord := NewQueueCoordinator(processor, sink, cancel, nil, 16)

	err := coord.SubmitBatch(context.Background(), []UploadItemInput{
		{ClientID: "c1", Path: inputPath, Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"}},
	})
	require.NoError(t, err)

	waitForBatchDone(t, sink, time.Second)
	assert.Equal(t, 1, sink.batchDones)
}

// S3 — Mid-pipeline cancel: the first item is allowed to reach its blob put
// before cancellation is signaled; items still queued behind it terminate
// Cancelled with no side effects; batch-done is emitted exactly once.
func TestCoordinator_MidPipelineCancel(t *testing.T) {
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	transcoder := &fakeTranscoder{outputSize: 8}

	firstPutStarted := make(chan struct{})
	proceed := make(chan struct{})
	var putCount int
	blobs.putDelay = func() {
		putCount++
		if putCount == 1 {
			close(firstPutStarted)
			<-proceed
		}
	}

	processor := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	coord := NewQueueCoordinator(processor, sink, cancel, nil, 16)

	var inputs []UploadItemInput
	for i := 0; i < 3; i++ {
		inputs = append(inputs, UploadItemInput{
			ClientID: "c", Path: writeTempInput(t, "stub-data"),
			Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"},
		})
	}

	err := coord.SubmitBatch(context.Background(), inputs)
	require.NoError(t, err)

	<-firstPutStarted
	coord.CancelBatch()
	close(proceed)

	waitForBatchDone(t, sink, time.Second)

	assert.Equal(t, 1, sink.batchDones)
	// Items 2 and 3 never reach a blob put.
	assert.LessOrEqual(t, len(blobs.objects), 2)
}

// Concurrent SubmitBatch calls racing against the drain goroutine's exit
// must never strand an item in the queue with no drain left to consume it.
// Every submitted item must eventually reach a terminal status.
func TestCoordinator_ConcurrentSubmitBatch(t *testing.T) {
	const submitters = 8

	transcoder := &fakeTranscoder{outputSize: 8}
	blobs := newFakeBlobStore()
	docs := newFakeDocStore()
	sink := newFakeProgressSink()
	cancel := NewCancelToken()
	processor := newTestProcessor(transcoder, blobs, docs, sink, cancel)
	coord := NewQueueCoordinator(processor, sink, cancel, nil, submitters*4)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := UploadItemInput{
				ClientID: "c",
				Path:     writeTempInput(t, "stub-data"),
				Metadata: FinalizedMetadata{Album: "Alb", Artist: "X"},
			}
			require.NoError(t, coord.SubmitBatch(context.Background(), []UploadItemInput{input}))
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		terminalCount := 0
		for _, p := range sink.snapshots {
			if p.Status == StatusComplete || p.Status == StatusError || p.Status == StatusCancelled {
				terminalCount++
			}
		}
		sink.mu.Unlock()
		if terminalCount == submitters {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for every concurrently-submitted item to reach a terminal status")
}

// Invariant 9: cancellation is idempotent.
func TestCancelToken_Idempotent(t *testing.T) {
	c := NewCancelToken()
	c.Set()
	c.Set()
	assert.True(t, c.IsSet())
}
