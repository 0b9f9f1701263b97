/**
 * Loan-document processing worker - main entry point.
 *
 * Wires the six internal components (C1-C6) behind the task lifecycle
 * controller and starts the queue consumer(s) that feed it.
 *
 * Architecture:
 * - Asynq consumer (primary) + direct-Redis consumer (secondary) for
 *   the §6.1 task intake
 * - Scanned-page detection + OCR router with circuit breaker (C1/C2)
 * - Extraction router with transient/fatal retry and fallback (C3/C4)
 * - Deduplication + confidence + consistency reconciliation (C5)
 * - PostgreSQL system of record, Qdrant best-effort semantic index
 */
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adverant/nexus/loanprocess-worker/internal/config"
	"github.com/adverant/nexus/loanprocess-worker/internal/extraction"
	"github.com/adverant/nexus/loanprocess-worker/internal/lifecycle"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
	"github.com/adverant/nexus/loanprocess-worker/internal/ocr"
	"github.com/adverant/nexus/loanprocess-worker/internal/queue"
	"github.com/adverant/nexus/loanprocess-worker/internal/reconcile"
	"github.com/adverant/nexus/loanprocess-worker/internal/storage"
)

func main() {
	logger := logging.NewLogger("main")

	if err := godotenv.Load(".env.nexus"); err != nil {
		logger.Info(".env.nexus not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("configuration loaded", "redis", cfg.RedisURL, "database", cfg.DatabaseURL,
		"qdrant", cfg.QdrantURL, "workers", cfg.WorkerConcurrency)

	storageManager, err := storage.NewManager(cfg.DatabaseURL, cfg.QdrantURL, cfg.QdrantCollection)
	if err != nil {
		logger.Error("failed to initialize storage manager", "error", err)
		os.Exit(1)
	}
	defer storageManager.Close()

	if err := storageManager.Ping(context.Background()); err != nil {
		logger.Error("storage manager failed readiness check", "error", err)
		os.Exit(1)
	}
	logger.Info("storage manager initialized (PostgreSQL + Qdrant)")

	controller := buildController(cfg, storageManager)
	logger.Info("task lifecycle controller wired")

	asynqTimeout := time.Duration(cfg.ProcessingTimeout) * time.Millisecond
	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         "loanprocess:jobs",
		Concurrency:       cfg.WorkerConcurrency,
		Controller:        controller,
		ProcessingTimeout: int64(asynqTimeout / time.Millisecond),
	})
	if err != nil {
		logger.Error("failed to initialize queue consumer", "error", err)
		os.Exit(1)
	}

	redisConsumer, err := queue.NewRedisConsumer(&queue.RedisConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         "loanprocess:direct-jobs",
		Concurrency:       cfg.WorkerConcurrency,
		Controller:        controller,
		ProcessingTimeout: int64(asynqTimeout / time.Millisecond),
	})
	if err != nil {
		logger.Error("failed to initialize direct Redis consumer", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		logger.Error("failed to start queue consumer", "error", err)
		os.Exit(1)
	}
	if err := redisConsumer.Start(); err != nil {
		logger.Error("failed to start direct Redis consumer", "error", err)
		os.Exit(1)
	}

	logger.Info("worker ready", "queues", []string{"loanprocess:jobs", "loanprocess:direct-jobs"}, "concurrency", cfg.WorkerConcurrency)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig)

	if err := consumer.Stop(ctx); err != nil {
		logger.Error("error stopping queue consumer", "error", err)
	}
	if err := redisConsumer.Stop(); err != nil {
		logger.Error("error stopping direct Redis consumer", "error", err)
	}
	if err := storageManager.Close(); err != nil {
		logger.Error("error closing storage manager", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildController wires C1 through C5 and hands them to a fresh C6
// controller.
func buildController(cfg *config.Config, storageManager *storage.Manager) *lifecycle.Controller {
	healthTimeout := time.Duration(cfg.OCRHealthTimeout) * time.Millisecond
	remote := ocr.NewRemoteClient(cfg.OCRServiceURL, cfg.OCRServiceToken, healthTimeout)
	tesseract := ocr.NewTesseract(cfg.TesseractPath)
	breaker := ocr.NewBreaker(cfg.BreakerFailMax, time.Duration(cfg.BreakerResetTimeoutMS)*time.Millisecond)
	detector := ocr.NewDetector(cfg.DetectorMinChars, cfg.DetectorScanRatio)
	router := ocr.NewRouter(breaker, remote, tesseract, cfg.OCRMaxPageWorkers, cfg.OCRRenderDPI, cfg.TempDir)
	ocrPipeline := ocr.NewPipeline(detector, router, cfg.TempDir)

	llmTimeout := 120 * time.Second
	llm := extraction.NewLLMClient(cfg.LLMServiceURL, cfg.LLMServiceToken, llmTimeout)
	chunker := extraction.NewChunker(extraction.DefaultMaxChars, extraction.DefaultOverlapChars)
	doclingExtractor := extraction.NewExtractor(llm, chunker)
	charExtractor := extraction.NewCharExtractor(llm, chunker)
	retryConfig := extraction.RetryConfig{
		Base:     time.Duration(cfg.ExtractionRetryBase) * time.Second,
		MaxWait:  time.Duration(cfg.ExtractionRetryMaxWait) * time.Second,
		Attempts: cfg.ExtractionRetryAttempts,
	}
	extractionRouter := extraction.NewRouter(doclingExtractor, charExtractor, retryConfig)

	reconcileEngine := reconcile.NewEngine()

	blobFetcher := storage.NewBlobFetcher(30 * time.Second)

	return lifecycle.NewController(storageManager, storageManager, blobFetcher, ocrPipeline, extractionRouter, reconcileEngine, cfg.MaxRetryCount)
}
