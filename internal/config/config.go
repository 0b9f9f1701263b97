/**
 * Configuration for the loan-document processing worker.
 *
 * Loads configuration from the environment (optionally overlaid by a
 * .env file, read by the caller before LoadConfig runs) via viper's
 * env-binding support.
 */

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds worker configuration.
type Config struct {
	// Queue / broker
	RedisURL string

	// Record store
	DatabaseURL string

	// Vector store (optional semantic search over reconciled borrowers)
	QdrantURL        string
	QdrantCollection string

	// Remote OCR service ("gpu" branch of the OCR router)
	OCRServiceURL   string
	OCRServiceToken string

	// Remote LLM service (structured extraction)
	LLMServiceURL   string
	LLMServiceToken string

	// Worker tuning
	WorkerConcurrency int
	MaxFileSize       int64
	ProcessingTimeout int // milliseconds, per-task deadline budget

	// OCR router tuning
	OCRMaxPageWorkers int // bounded per-page OCR fan-out, §5
	OCRRenderDPI      int
	OCRHealthTimeout  int // milliseconds

	// Scanned-page detector tuning (§4.1)
	DetectorMinChars  int
	DetectorScanRatio float64

	// Circuit breaker tuning (§4.2)
	BreakerFailMax        int
	BreakerResetTimeoutMS int

	// Extraction router tuning (§4.3)
	ExtractionRetryBase    int // seconds
	ExtractionRetryMaxWait int // seconds
	ExtractionRetryAttempts int

	// Task lifecycle controller tuning (§4.6)
	MaxRetryCount int

	// Tesseract native OCR fallback
	TesseractPath string

	TempDir string
	NodeEnv string
}

// LoadConfig loads configuration from the environment via viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("QDRANT_URL", "localhost:6334")
	v.SetDefault("QDRANT_COLLECTION", "loanprocess_borrowers")
	v.SetDefault("OCR_SERVICE_URL", "http://localhost:8080")
	v.SetDefault("LLM_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("MAX_FILE_SIZE", int64(52428800)) // 50MB, matches ingress contract
	v.SetDefault("PROCESSING_TIMEOUT", 300000)      // 5 minutes
	v.SetDefault("OCR_MAX_PAGE_WORKERS", 4)
	v.SetDefault("OCR_RENDER_DPI", 150)
	v.SetDefault("OCR_HEALTH_TIMEOUT", 10000)
	v.SetDefault("DETECTOR_MIN_CHARS", 50)
	v.SetDefault("DETECTOR_SCAN_RATIO", 0.5)
	v.SetDefault("BREAKER_FAIL_MAX", 3)
	v.SetDefault("BREAKER_RESET_TIMEOUT_MS", 60000)
	v.SetDefault("EXTRACTION_RETRY_BASE", 4)
	v.SetDefault("EXTRACTION_RETRY_MAX_WAIT", 60)
	v.SetDefault("EXTRACTION_RETRY_ATTEMPTS", 3)
	v.SetDefault("MAX_RETRY_COUNT", 4)
	v.SetDefault("TESSERACT_PATH", "/usr/bin/tesseract")
	v.SetDefault("TEMP_DIR", "/tmp/loanprocess")
	v.SetDefault("NODE_ENV", "development")

	cfg := &Config{
		RedisURL:                v.GetString("REDIS_URL"),
		DatabaseURL:             v.GetString("DATABASE_URL"),
		QdrantURL:               v.GetString("QDRANT_URL"),
		QdrantCollection:        v.GetString("QDRANT_COLLECTION"),
		OCRServiceURL:           v.GetString("OCR_SERVICE_URL"),
		OCRServiceToken:         v.GetString("OCR_SERVICE_TOKEN"),
		LLMServiceURL:           v.GetString("LLM_SERVICE_URL"),
		LLMServiceToken:         v.GetString("LLM_SERVICE_TOKEN"),
		WorkerConcurrency:       v.GetInt("WORKER_CONCURRENCY"),
		MaxFileSize:             v.GetInt64("MAX_FILE_SIZE"),
		ProcessingTimeout:       v.GetInt("PROCESSING_TIMEOUT"),
		OCRMaxPageWorkers:       v.GetInt("OCR_MAX_PAGE_WORKERS"),
		OCRRenderDPI:            v.GetInt("OCR_RENDER_DPI"),
		OCRHealthTimeout:        v.GetInt("OCR_HEALTH_TIMEOUT"),
		DetectorMinChars:        v.GetInt("DETECTOR_MIN_CHARS"),
		DetectorScanRatio:       v.GetFloat64("DETECTOR_SCAN_RATIO"),
		BreakerFailMax:          v.GetInt("BREAKER_FAIL_MAX"),
		BreakerResetTimeoutMS:   v.GetInt("BREAKER_RESET_TIMEOUT_MS"),
		ExtractionRetryBase:     v.GetInt("EXTRACTION_RETRY_BASE"),
		ExtractionRetryMaxWait:  v.GetInt("EXTRACTION_RETRY_MAX_WAIT"),
		ExtractionRetryAttempts: v.GetInt("EXTRACTION_RETRY_ATTEMPTS"),
		MaxRetryCount:           v.GetInt("MAX_RETRY_COUNT"),
		TesseractPath:           v.GetString("TESSERACT_PATH"),
		TempDir:                 v.GetString("TEMP_DIR"),
		NodeEnv:                 v.GetString("NODE_ENV"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 10737418240 { // 1KB to 10GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 10GB, got %d", c.MaxFileSize)
	}

	if c.MaxRetryCount < 0 {
		return fmt.Errorf("MAX_RETRY_COUNT must be non-negative, got %d", c.MaxRetryCount)
	}

	if c.BreakerFailMax < 1 {
		return fmt.Errorf("BREAKER_FAIL_MAX must be at least 1, got %d", c.BreakerFailMax)
	}

	return nil
}
