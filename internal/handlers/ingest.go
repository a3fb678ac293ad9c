// Package handlers implements the HTTP and WebSocket surface the desktop
// client drives: submit a batch, cancel the in-flight batch, query a
// single item's last-known progress, and subscribe to the live progress
// stream.
package handlers

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/wizziwig82/musiclib-ingest/internal/errors"
	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
	"github.com/wizziwig82/musiclib-ingest/internal/logger"
	"github.com/wizziwig82/musiclib-ingest/internal/progress"
	"github.com/wizziwig82/musiclib-ingest/internal/util"
)

// Handlers wires the four caller-facing commands to the coordinator and
// progress hub.
type Handlers struct {
	coordinator *ingest.QueueCoordinator
	hub         *progress.Hub
}

// NewHandlers builds a Handlers bound to the given coordinator and
// progress hub.
func NewHandlers(coordinator *ingest.QueueCoordinator, hub *progress.Hub) *Handlers {
	return &Handlers{coordinator: coordinator, hub: hub}
}

type submitBatchItem struct {
	ClientID string `json:"client_id"`
	Path     string `json:"path" binding:"required"`
	Metadata struct {
		Title       string   `json:"title"`
		Artist      string   `json:"artist"`
		Album       string   `json:"album"`
		TrackNumber int      `json:"track_number"`
		Duration    float64  `json:"duration"`
		Genre       []string `json:"genre"`
		Composer    string   `json:"composer"`
		Year        int      `json:"year"`
		Comments    string   `json:"comments"`
	} `json:"metadata"`
}

type submitBatchRequest struct {
	Items []submitBatchItem `json:"items" binding:"required,min=1"`
}

// SubmitBatch admits a batch of items for ingestion. On a configuration or
// validation error it responds with the APIError that apiErrorFor maps the
// ingest.Error category to; otherwise it responds 202 Accepted immediately —
// terminal per-item outcomes are observed via subscribe/query.
func (h *Handlers) SubmitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	items := make([]ingest.UploadItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		if !util.IsValidAudioFile(it.Path) {
			util.RespondValidationError(c, "path", "unsupported audio file extension: "+it.Path)
			return
		}
		items = append(items, ingest.UploadItemInput{
			ClientID: it.ClientID,
			Path:     it.Path,
			Metadata: ingest.FinalizedMetadata{
				Title:       it.Metadata.Title,
				Artist:      it.Metadata.Artist,
				Album:       it.Metadata.Album,
				TrackNumber: it.Metadata.TrackNumber,
				Duration:    it.Metadata.Duration,
				Genre:       it.Metadata.Genre,
				Composer:    it.Metadata.Composer,
				Year:        it.Metadata.Year,
				Comments:    it.Metadata.Comments,
			},
		})
	}

	if err := h.coordinator.SubmitBatch(c.Request.Context(), items); err != nil {
		util.RespondWithAPIError(c, apiErrorFor(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "admitted", "count": len(items)})
}

// CancelBatch sets the shared cancel flag for the in-flight batch.
// Idempotent; always succeeds.
func (h *Handlers) CancelBatch(c *gin.Context) {
	h.coordinator.CancelBatch()
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}

// QueryProgress returns the last-known snapshot for a single item.
func (h *Handlers) QueryProgress(c *gin.Context) {
	itemID := c.Param("item_id")
	if err := util.ValidateUUID(itemID); err != nil {
		util.RespondValidationError(c, "item_id", err.Error())
		return
	}

	p, ok := h.coordinator.QueryProgress(itemID)
	if !ok {
		util.RespondNotFound(c, "item")
		return
	}
	c.JSON(http.StatusOK, p)
}

// SubscribeProgress upgrades the connection to a WebSocket and streams
// every progress event (plus batch-done markers) until the client
// disconnects.
func (h *Handlers) SubscribeProgress(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Log.Warn("progress subscribe: upgrade failed", zap.Error(err))
		return
	}

	client := progress.NewClient(h.hub, conn)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump()
}

// apiErrorFor maps the pipeline's error taxonomy onto the HTTP-facing
// APIError shape used throughout this codebase's API responses.
func apiErrorFor(err error) *apierrors.APIError {
	ie, ok := err.(*ingest.Error)
	if !ok {
		return apierrors.InternalError(err.Error())
	}
	switch ie.Category {
	case ingest.CategoryConfiguration:
		return apierrors.ServiceUnavailable("ingestion pipeline").WithDetails(ie.Message)
	case ingest.CategoryValidation:
		return apierrors.BadRequest(ie.Message)
	default:
		return apierrors.InternalError(ie.Message)
	}
}
