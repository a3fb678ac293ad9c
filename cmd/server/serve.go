package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wizziwig82/musiclib-ingest/internal/audio"
	"github.com/wizziwig82/musiclib-ingest/internal/blobstore"
	"github.com/wizziwig82/musiclib-ingest/internal/config"
	"github.com/wizziwig82/musiclib-ingest/internal/docstore"
	"github.com/wizziwig82/musiclib-ingest/internal/handlers"
	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
	"github.com/wizziwig82/musiclib-ingest/internal/logger"
	"github.com/wizziwig82/musiclib-ingest/internal/metrics"
	"github.com/wizziwig82/musiclib-ingest/internal/middleware"
	"github.com/wizziwig82/musiclib-ingest/internal/progress"
	"github.com/wizziwig82/musiclib-ingest/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion pipeline HTTP/WebSocket server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	logLevel := os.Getenv("LOG_LEVEL")
	logFile := os.Getenv("LOG_FILE")
	if err := logger.Initialize(logLevel, logFile); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := godotenv.Load(); err != nil {
		logger.Log.Warn("no .env file found, relying on process environment")
	}

	var tracerShutdown func(context.Context) error
	if os.Getenv("OTEL_ENABLED") == "true" {
		tp, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "musiclib-ingest"),
			Environment:  getEnvOrDefault("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Enabled:      true,
			SamplingRate: getEnvFloat("OTEL_TRACE_SAMPLER_RATE", 1.0),
		})
		if err != nil {
			logger.Log.Error("failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else if tp != nil {
			tracerShutdown = tp.Shutdown
			logger.Log.Info("OpenTelemetry tracing initialized")
		}
	}
	if tracerShutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerShutdown(ctx); err != nil {
				logger.Log.Warn("tracer shutdown error", zap.Error(err))
			}
		}()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.FatalWithFields("invalid configuration", err)
	}

	metricsManager := metrics.GetManager()
	logger.Log.Info("Prometheus metrics initialized")

	ctx := context.Background()

	docs, err := docstore.Connect(ctx, cfg)
	if err != nil {
		logger.FatalWithFields("failed to connect to document store", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := docs.Close(shutdownCtx); err != nil {
			logger.Log.Warn("error closing document store", zap.Error(err))
		}
	}()

	blobs, err := blobstore.New(ctx, cfg)
	if err != nil {
		logger.FatalWithFields("failed to configure blob store", err)
	}

	transcoder := audio.NewTranscoder(cfg.FFmpegPath, cfg.TempDir)
	if err := transcoder.CheckAvailable(); err != nil {
		logger.Log.Warn("ffmpeg not available at startup; transcoding will fail until this is fixed",
			zap.Error(err), zap.String("ffmpeg_path", cfg.FFmpegPath))
	}

	hub := progress.NewHub()
	defer hub.Shutdown()

	cancelToken := ingest.NewCancelToken()

	processor := &ingest.ItemProcessor{
		Transcoder:       transcoder,
		Blobs:            blobs,
		Docs:             docs,
		Progress:         hub,
		Cancel:           cancelToken,
		Metrics:          metricsManager,
		ControlOpTimeout: cfg.ControlOpTimeout,
		UploadTimeout:    cfg.UploadTimeout,
		TranscodeTimeout: cfg.TranscodeTimeout,
	}
	coordinator := ingest.NewQueueCoordinator(processor, hub, cancelToken, metricsManager, cfg.QueueCapacity)

	h := handlers.NewHandlers(coordinator, hub)

	r := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept"}
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	if os.Getenv("OTEL_ENABLED") == "true" {
		r.Use(middleware.TracingMiddleware("musiclib-ingest"))
	}
	r.Use(gin.Recovery())

	// The progress subscription route upgrades to a WebSocket; it and the
	// metrics scrape endpoint are excluded from compression.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/v1/progress/subscribe",
		"/metrics",
	})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "musiclib-ingest",
		})
	})

	// Unauthenticated: this runs as a local companion process for a desktop
	// app, not a multi-tenant deployment, so there is no admin session to
	// gate this behind.
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/batch", h.SubmitBatch)
		api.POST("/batch/cancel", h.CancelBatch)
		api.GET("/items/:item_id/progress", h.QueryProgress)
		api.GET("/progress/subscribe", h.SubscribeProgress)
	}

	port := getEnvOrDefault("PORT", "8787")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("musiclib-ingest starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("server forced to shutdown", err)
	}

	logger.Log.Info("server exited")
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}
