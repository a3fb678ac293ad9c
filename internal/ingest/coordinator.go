package ingest

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizziwig82/musiclib-ingest/internal/logger"
	"github.com/wizziwig82/musiclib-ingest/internal/metrics"
)

// QueueCoordinator is C7: owns the bounded FIFO queue of admitted items,
// spawns and tracks exactly one drain task, and emits batch completion.
// Bounded parallelism is 1 (items are processed strictly sequentially) per
// spec; this preserves per-item ordering and compensating-cleanup
// semantics.
type QueueCoordinator struct {
	processor *ItemProcessor
	progress  ProgressSink
	cancel    *CancelToken
	metricsM  *metrics.Manager

	queue     chan *QueueItem
	mu        sync.Mutex
	running   bool
	drainDone chan struct{}
}

// NewQueueCoordinator builds a coordinator with the given capacity for its
// admission queue. Capacity SHOULD be >= the expected batch size so
// SubmitBatch is non-blocking in the common case.
func NewQueueCoordinator(processor *ItemProcessor, progress ProgressSink, cancel *CancelToken, m *metrics.Manager, capacity int) *QueueCoordinator {
	return &QueueCoordinator{
		processor: processor,
		progress:  progress,
		cancel:    cancel,
		metricsM:  m,
		queue:     make(chan *QueueItem, capacity),
	}
}

// SubmitBatch validates preconditions, clears the cancel token, and admits
// every item. Items whose input path does not exist are admitted but
// immediately produce a terminal Error("File not found") without consuming
// a pipeline slot. If a drain is already running, items are appended to the
// live queue and no new drain task is spawned.
func (c *QueueCoordinator) SubmitBatch(ctx context.Context, items []UploadItemInput) error {
	if c.processor.Blobs == nil || c.processor.Docs == nil {
		return ConfigurationError("blob store and document store capabilities must be configured")
	}
	if len(items) == 0 {
		return ValidationError("batch must not be empty")
	}

	c.mu.Lock()
	c.cancel.Clear()
	c.mu.Unlock()

	for _, input := range items {
		itemID := uuid.New().String()

		if _, err := os.Stat(input.Path); err != nil {
			logger.Log.Warn("item rejected at admission: file not found",
				logger.WithItemID(itemID), zap.String("path", input.Path))
			c.progress.Emit(UploadProgress{
				ItemID:       itemID,
				OriginalPath: input.Path,
				Status:       StatusError,
				ErrorMessage: "File not found",
				Title:        input.Metadata.Title,
				Album:        input.Metadata.Album,
			})
			continue
		}

		item := &QueueItem{
			ItemID:   itemID,
			Input:    input,
			Metadata: input.Metadata,
		}
		c.progress.Emit(UploadProgress{
			ItemID:       itemID,
			OriginalPath: input.Path,
			Status:       StatusPending,
			Title:        input.Metadata.Title,
			Album:        input.Metadata.Album,
		})
		if c.metricsM != nil {
			c.metricsM.RecordItemSubmitted()
		}
		c.queue <- item
		if c.metricsM != nil {
			c.metricsM.SetQueueDepth(len(c.queue))
		}
	}

	c.ensureDrainRunning()
	return nil
}

// CancelBatch sets the shared cancel flag and returns immediately. Already
// running external transcode processes are not killed. Idempotent.
func (c *QueueCoordinator) CancelBatch() {
	c.cancel.Set()
}

// QueryProgress returns the last-known snapshot for an item, if any.
func (c *QueueCoordinator) QueryProgress(itemID string) (UploadProgress, bool) {
	return c.progress.Snapshot(itemID)
}

func (c *QueueCoordinator) ensureDrainRunning() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.drainDone = make(chan struct{})
	go c.drain()
}

// drain pulls items off the queue strictly sequentially. If cancellation is
// observed mid-item, it stops pulling further items but still drains any
// remaining queued items straight to Cancelled without side effects, then
// emits batch-done exactly once before clearing its running marker.
//
// Exiting when the queue looks empty and clearing the running marker happen
// under the same lock SubmitBatch's ensureDrainRunning acquires to spawn a
// new drain: a submission that lands an item on the queue after this drain
// has already observed it empty either completes before this critical
// section starts (so the length check below sees it and the loop keeps
// going) or is blocked on the lock until running is cleared (so its own
// ensureDrainRunning call correctly spawns a fresh drain instead of no-op'ing
// against a goroutine that is already on its way out). Either way the item
// is never stranded in the channel with no drain left to consume it.
func (c *QueueCoordinator) drain() {
	defer close(c.drainDone)

	ctx := context.Background()
	breakEarly := false

	for {
		select {
		case item, ok := <-c.queue:
			if !ok {
				c.progress.EmitBatchDone()
				return
			}
			if c.metricsM != nil {
				c.metricsM.SetQueueDepth(len(c.queue))
				c.metricsM.SetInFlight(1)
			}

			if breakEarly || c.cancel.IsSet() {
				c.progress.Emit(UploadProgress{
					ItemID:       item.ItemID,
					OriginalPath: item.Input.Path,
					Status:       StatusCancelled,
					Title:        item.Metadata.Title,
					Album:        item.Metadata.Album,
				})
				if c.metricsM != nil {
					c.metricsM.RecordItemCancelled()
				}
				breakEarly = true
				continue
			}

			terminal := c.processor.Process(ctx, item)
			if terminal == StatusCancelled {
				breakEarly = true
			}
			if c.metricsM != nil {
				c.metricsM.SetInFlight(0)
			}

		default:
			c.mu.Lock()
			if len(c.queue) > 0 {
				c.mu.Unlock()
				continue
			}
			c.running = false
			c.mu.Unlock()
			c.progress.EmitBatchDone()
			return
		}
	}
}
