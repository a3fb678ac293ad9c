package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the resolved configuration for the ingestion pipeline's
// capability implementations (transcoder, blob store, document store) and
// its runtime tunables.
type Config struct {
	// S3-compatible blob store
	S3Region      string
	S3Bucket      string
	S3Endpoint    string
	S3BaseURL     string
	S3AccessKeyID string
	S3SecretKey   string

	// MongoDB document store
	MongoURI string
	MongoDB  string

	// Transcoding
	FFmpegPath string
	TempDir    string

	// Pipeline tunables. ControlOpTimeout bounds document-store calls.
	// UploadTimeout is the base per-call budget for a blob upload before
	// the per-item processor scales it by file size. TranscodeTimeout is
	// carried for configurability but never enforced as a hard deadline —
	// an in-flight transcode always runs to completion.
	QueueCapacity    int
	ControlOpTimeout time.Duration
	UploadTimeout    time.Duration
	TranscodeTimeout time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// Load resolves Config from environment variables, failing fast on any
// required value that is missing. Optional values fall back to the defaults
// noted alongside each field.
func Load() (*Config, error) {
	cfg := &Config{
		S3Region:         getEnvOrDefault("INGEST_S3_REGION", "auto"),
		S3Endpoint:       os.Getenv("INGEST_S3_ENDPOINT"),
		S3BaseURL:        os.Getenv("INGEST_S3_BASE_URL"),
		S3AccessKeyID:    os.Getenv("INGEST_S3_ACCESS_KEY_ID"),
		S3SecretKey:      os.Getenv("INGEST_S3_SECRET_ACCESS_KEY"),
		MongoDB:          getEnvOrDefault("INGEST_MONGO_DATABASE", "music_library"),
		FFmpegPath:       getEnvOrDefault("INGEST_FFMPEG_PATH", "ffmpeg"),
		TempDir:          getEnvOrDefault("INGEST_TEMP_DIR", os.TempDir()),
		QueueCapacity:    getEnvInt("INGEST_QUEUE_CAPACITY", 256),
		ControlOpTimeout: getEnvDuration("INGEST_CONTROL_OP_TIMEOUT", 10*time.Second),
		UploadTimeout:    getEnvDuration("INGEST_UPLOAD_TIMEOUT", 30*time.Second),
		TranscodeTimeout: getEnvDuration("INGEST_TRANSCODE_TIMEOUT", 10*time.Minute),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:          getEnvOrDefault("LOG_FILE", "ingest.log"),
	}

	cfg.S3Bucket = os.Getenv("INGEST_S3_BUCKET")
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("INGEST_S3_BUCKET environment variable not set - this is REQUIRED for blob storage to work")
	}

	cfg.MongoURI = os.Getenv("INGEST_MONGO_URI")
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("INGEST_MONGO_URI environment variable not set - this is REQUIRED for the document store to work")
	}

	if cfg.QueueCapacity < 1 {
		return nil, fmt.Errorf("INGEST_QUEUE_CAPACITY must be at least 1, got %d", cfg.QueueCapacity)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
