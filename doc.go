// Package main provides the musiclib-ingest server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/ingest: the pipeline core — capability interfaces, the queue
//   coordinator, and the per-item state machine
// - internal/audio: transcoding via an external ffmpeg process
// - internal/blobstore: S3-compatible object storage
// - internal/docstore: MongoDB-backed track and album metadata storage
// - internal/progress: WebSocket fan-out of progress events
// - internal/handlers: HTTP/WebSocket request handlers for the caller-facing commands
// - internal/config: environment-driven configuration
// - internal/logger: structured, rotated logging
// - internal/metrics: Prometheus metrics
// - internal/telemetry: OpenTelemetry tracing
// - internal/middleware: HTTP middleware (request IDs, metrics, tracing)

// See the individual package documentation for detailed API reference.
package main
