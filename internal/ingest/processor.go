package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wizziwig82/musiclib-ingest/internal/logger"
	"github.com/wizziwig82/musiclib-ingest/internal/metrics"
	"github.com/wizziwig82/musiclib-ingest/internal/telemetry"
)

// uploadBytesPerSecond is the scaling factor spec.md §5 recommends for
// upload timeouts: base budget plus one second of grace per additional MB.
const uploadBytesPerSecond = 1 << 20

// ItemProcessor is C6: runs the per-item state machine on a single task,
// orchestrating the Transcoder, BlobStore and DocStore capabilities and
// emitting progress through the ProgressSink. It is the heart of the core.
type ItemProcessor struct {
	Transcoder Transcoder
	Blobs      BlobStore
	Docs       DocStore
	Progress   ProgressSink
	Cancel     *CancelToken
	Metrics    *metrics.Manager

	// ControlOpTimeout bounds document-store calls. UploadTimeout is the
	// base budget for a blob upload, scaled up by file size. TranscodeTimeout
	// is recorded but never enforced as a hard deadline: ffmpeg always runs
	// to completion per spec.md §9's no-kill-on-cancel decision, and an
	// expired ctx here only still lets that external-call-timeout policy be
	// applied uniformly rather than silently skipped for this one stage.
	ControlOpTimeout time.Duration
	UploadTimeout    time.Duration
	TranscodeTimeout time.Duration
}

// withTimeout derives a bounded context, or returns ctx unchanged when d is
// not positive (tests exercising the processor without configuring timeouts
// should not trip on an already-expired zero-duration deadline).
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// uploadTimeoutFor scales the configured base upload timeout by the size of
// the file being uploaded, per spec.md §5's "30s + 1MB/s scaling" rule.
func (p *ItemProcessor) uploadTimeoutFor(path string) time.Duration {
	base := p.UploadTimeout
	info, err := os.Stat(path)
	if err != nil {
		return base
	}
	return base + time.Duration(info.Size()/uploadBytesPerSecond)*time.Second
}

// Process runs item through the full state machine and returns its terminal
// status. The cancel flag is polled before each state entry and after each
// external call returns, for up to nine checks per item.
func (p *ItemProcessor) Process(ctx context.Context, item *QueueItem) (terminal Status) {
	ctx, itemSpan := telemetry.TraceItem(ctx, item.ItemID)
	defer itemSpan.End()

	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("panic in item processor, converting to error state",
				logger.WithItemID(item.ItemID), zap.Any("panic", r))
			p.finishError(ctx, item, fmt.Sprintf("internal: %v", r))
			terminal = StatusError
		}
	}()

	p.emit(item, StatusPending, "")
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}

	// --- Transcoding ---
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}
	p.emit(item, StatusTranscoding, "")
	stageStart := time.Now()
	sctx, stageSpan := telemetry.TraceStage(ctx, telemetry.StageCallAttrs{ItemID: item.ItemID, Stage: "transcode"})
	tctx, tcancel := withTimeout(sctx, p.TranscodeTimeout)
	tempPath, err := p.Transcoder.Transcode(tctx, item.Input.Path)
	tcancel()
	telemetry.RecordStageError(stageSpan, err)
	if err == nil {
		telemetry.RecordStageSuccess(stageSpan)
	}
	stageSpan.End()
	p.recordStage("transcode", stageStart)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return p.finishError(ctx, item, "timeout")
		}
		return p.finishError(ctx, item, fmt.Sprintf("Transcoding failed: %v", err))
	}
	item.TempTranscodedPath = &tempPath
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}

	// --- Uploading original ---
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}
	p.emit(item, StatusUploadingOriginal, "")
	originalKey := "tracks/original/" + sanitizeKeyBasename(item.Input.Path)
	stageStart = time.Now()
	sctx, stageSpan = telemetry.TraceStage(ctx, telemetry.StageCallAttrs{ItemID: item.ItemID, Stage: "upload_original", Resource: originalKey})
	err = p.putBlobTimed(sctx, originalKey, item.Input.Path)
	telemetry.RecordStageError(stageSpan, err)
	if err == nil {
		telemetry.RecordStageSuccess(stageSpan)
	}
	stageSpan.End()
	p.recordStage("upload_original", stageStart)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return p.finishError(ctx, item, "timeout")
		}
		return p.finishError(ctx, item, fmt.Sprintf("Upload failed: %v", err))
	}
	item.BlobKeyOriginal = &originalKey
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}

	// --- Uploading compressed sibling ---
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}
	p.emit(item, StatusUploadingCompressed, "")
	if item.TempTranscodedPath != nil {
		compressedKey := "tracks/aac/" + sanitizeKeyBasename(*item.TempTranscodedPath)
		stageStart = time.Now()
		sctx, stageSpan = telemetry.TraceStage(ctx, telemetry.StageCallAttrs{ItemID: item.ItemID, Stage: "upload_compressed", Resource: compressedKey})
		err = p.putBlobTimed(sctx, compressedKey, *item.TempTranscodedPath)
		telemetry.RecordStageError(stageSpan, err)
		if err == nil {
			telemetry.RecordStageSuccess(stageSpan)
		}
		stageSpan.End()
		p.recordStage("upload_compressed", stageStart)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return p.finishError(ctx, item, "timeout")
			}
			return p.finishError(ctx, item, fmt.Sprintf("Upload failed: %v", err))
		}
		item.BlobKeyCompressed = &compressedKey
	}
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}

	// --- Storing metadata ---
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}
	p.emit(item, StatusStoringMetadata, "")
	stageStart = time.Now()
	sctx, stageSpan = telemetry.TraceStage(ctx, telemetry.StageCallAttrs{ItemID: item.ItemID, Stage: "store_metadata"})
	dctx, dcancel := withTimeout(sctx, p.ControlOpTimeout)
	trackID, err := p.storeMetadata(dctx, item)
	dcancel()
	telemetry.RecordStageError(stageSpan, err)
	if err == nil {
		telemetry.RecordStageSuccess(stageSpan)
	}
	stageSpan.End()
	p.recordStage("store_metadata", stageStart)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return p.finishError(ctx, item, "timeout")
		}
		return p.finishError(ctx, item, fmt.Sprintf("Metadata storage failed: %v", err))
	}
	item.DocTrackID = &trackID
	if p.Cancel.IsSet() {
		return p.finishCancelled(ctx, item)
	}

	// --- Complete ---
	p.cleanupTempFile(item)
	p.emit(item, StatusComplete, "")
	if p.Metrics != nil {
		p.Metrics.RecordItemCompleted()
	}
	return StatusComplete
}

// putBlobTimed uploads path under key, bounding the call by a timeout scaled
// to the file's size (spec.md §5's "30s + 1MB/s scaling" upload budget).
func (p *ItemProcessor) putBlobTimed(ctx context.Context, key, path string) error {
	uctx, cancel := withTimeout(ctx, p.uploadTimeoutFor(path))
	defer cancel()
	return p.putBlob(uctx, key, path)
}

func (p *ItemProcessor) putBlob(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return BlobError("could not open file for upload", err)
	}
	defer f.Close()
	if err := p.Blobs.Put(ctx, key, f, guessMIME(path)); err != nil {
		return err
	}
	return nil
}

// storeMetadata finds-or-creates the album by (name, artist) and inserts the
// track document referencing it. The find-then-insert is not atomic; under
// the single-process-drive assumption the race window is narrow, and a
// resulting duplicate album is an accepted concession (see DESIGN.md).
func (p *ItemProcessor) storeMetadata(ctx context.Context, item *QueueItem) (string, error) {
	meta := item.Metadata

	albumName := meta.Album
	if albumName == "" {
		albumName = "Unknown Album"
	}
	artist := meta.Artist
	if artist == "" {
		artist = "Unknown Artist"
	}
	title := meta.Title
	if title == "" {
		ext := filepath.Ext(item.Input.Path)
		title = filepath.Base(item.Input.Path)
		title = title[:len(title)-len(ext)]
	}

	album, err := p.Docs.FindAlbum(ctx, albumName, artist)
	if err != nil {
		return "", err
	}

	var albumID string
	if album != nil {
		albumID = album.ID
	} else {
		newAlbum := &AlbumDocument{
			Name:      albumName,
			Artist:    artist,
			Year:      meta.Year,
			Genres:    meta.Genre,
			DateAdded: time.Now(),
		}
		albumID, err = p.Docs.InsertAlbum(ctx, newAlbum)
		if err != nil {
			return "", err
		}
	}

	info, statErr := os.Stat(item.Input.Path)
	var fileSize int64
	if statErr == nil {
		fileSize = info.Size()
	}

	track := &TrackDocument{
		Title:        title,
		Filename:     filepath.Base(item.Input.Path),
		Duration:     meta.Duration,
		TrackNumber:  meta.TrackNumber,
		AlbumID:      albumID,
		Artists:      []string{artist},
		OriginalPath: item.Input.Path,
		MimeType:     guessMIME(item.Input.Path),
		FileSize:     fileSize,
		Genres:       meta.Genre,
		Composer:     meta.Composer,
		Comments:     meta.Comments,
		DateAdded:    time.Now(),
		Extension:    filepath.Ext(item.Input.Path),
	}
	if item.BlobKeyOriginal != nil {
		track.BlobKeyOriginal = *item.BlobKeyOriginal
	}
	if item.BlobKeyCompressed != nil {
		track.BlobKeyCompressed = *item.BlobKeyCompressed
	}

	return p.Docs.InsertTrack(ctx, track)
}

func (p *ItemProcessor) finishCancelled(ctx context.Context, item *QueueItem) Status {
	p.cleanup(ctx, item)
	p.emit(item, StatusCancelled, "")
	if p.Metrics != nil {
		p.Metrics.RecordItemCancelled()
	}
	return StatusCancelled
}

func (p *ItemProcessor) finishError(ctx context.Context, item *QueueItem, message string) Status {
	p.cleanup(ctx, item)
	p.emit(item, StatusError, message)
	if p.Metrics != nil {
		p.Metrics.RecordItemFailed(string(lastAttemptedStage(item)))
	}
	return StatusError
}

// cleanup performs compensating cleanup in the mandated order: the inserted
// track document (if any), then the compressed blob, then the original
// blob, then the local temp file. It reads exclusively from the QueueItem's
// committed-effect fields, never from the error, since it also runs on plain
// cancellation where there is no error at all. Failures are logged but never
// re-raised — rollback is best-effort.
func (p *ItemProcessor) cleanup(ctx context.Context, item *QueueItem) {
	if item.DocTrackID != nil {
		dctx, cancel := withTimeout(ctx, p.ControlOpTimeout)
		if err := p.Docs.DeleteTrack(dctx, *item.DocTrackID); err != nil {
			logger.Log.Warn("cleanup: failed to delete track document",
				logger.WithItemID(item.ItemID), zap.Error(err))
		}
		cancel()
	}
	var blobKeys []string
	if item.BlobKeyCompressed != nil {
		blobKeys = append(blobKeys, *item.BlobKeyCompressed)
	}
	if item.BlobKeyOriginal != nil {
		blobKeys = append(blobKeys, *item.BlobKeyOriginal)
	}
	if len(blobKeys) > 0 {
		bctx, cancel := withTimeout(ctx, p.ControlOpTimeout)
		if err := p.Blobs.DeleteMany(bctx, blobKeys); err != nil {
			logger.Log.Warn("cleanup: failed to delete uploaded blobs",
				logger.WithItemID(item.ItemID), zap.Strings("keys", blobKeys), zap.Error(err))
		}
		cancel()
	}
	p.cleanupTempFile(item)
}

func (p *ItemProcessor) cleanupTempFile(item *QueueItem) {
	if item.TempTranscodedPath == nil {
		return
	}
	if err := os.Remove(*item.TempTranscodedPath); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn("cleanup: failed to remove temp file",
			logger.WithItemID(item.ItemID), zap.Error(err))
	}
}

func (p *ItemProcessor) emit(item *QueueItem, status Status, errMsg string) {
	if p.Progress == nil {
		return
	}
	p.Progress.Emit(UploadProgress{
		ItemID:       item.ItemID,
		OriginalPath: item.Input.Path,
		Status:       status,
		ErrorMessage: errMsg,
		Title:        item.Metadata.Title,
		Album:        item.Metadata.Album,
		UpdatedAt:    time.Now(),
	})
}

func (p *ItemProcessor) recordStage(stage string, start time.Time) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.Metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// lastAttemptedStage reports which stage an item reached, for failure
// metric labeling, based on which QueueItem fields have been populated.
func lastAttemptedStage(item *QueueItem) Status {
	switch {
	case item.DocTrackID != nil:
		return StatusComplete
	case item.BlobKeyCompressed != nil:
		return StatusStoringMetadata
	case item.BlobKeyOriginal != nil:
		return StatusUploadingCompressed
	case item.TempTranscodedPath != nil:
		return StatusUploadingOriginal
	default:
		return StatusTranscoding
	}
}
