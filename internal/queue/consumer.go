/**
 * Queue Consumer for the loan-document processing worker.
 *
 * Consumes "process-document" tasks from Redis via Asynq and drives
 * them through the task lifecycle controller (C6). Implements the
 * §6.1 task-intake contract: asynq's own retry-count tracking stands
 * in for the dispatcher's X-Retry-Count header, and the controller's
 * Outcome.HTTPStatus selects whether the handler returns nil (asynq
 * marks the task done) or a retryable error (asynq reschedules it per
 * RetryDelayFunc).
 */
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/extraction"
	"github.com/adverant/nexus/loanprocess-worker/internal/lifecycle"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// TaskTypeProcessDocument is the asynq task type name for the §6.1
// document-processing task.
const TaskTypeProcessDocument = "process-document"

// TaskPayload mirrors the §6.1 task-intake JSON shape exactly.
type TaskPayload struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Method     string `json:"method"` // docling | langextract | auto, default docling
	OCR        string `json:"ocr"`    // auto | force | skip, default auto
}

// NewProcessDocumentTask builds an asynq.Task carrying a TaskPayload,
// for producers that enqueue work onto this worker's queue.
func NewProcessDocumentTask(payload TaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeProcessDocument, data), nil
}

// Consumer handles job consumption from the Redis-backed Asynq queue.
type Consumer struct {
	client     *asynq.Client
	server     *asynq.Server
	mux        *asynq.ServeMux
	controller *lifecycle.Controller
	config     *ConsumerConfig
	logger     *logging.Logger
}

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Controller        *lifecycle.Controller
	ProcessingTimeout int64 // per-task deadline budget, milliseconds (default: 300000 = 5 minutes)
}

// NewConsumer creates a new queue consumer.
func NewConsumer(cfg *ConsumerConfig) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if cfg.Controller == nil {
		return nil, fmt.Errorf("Controller is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)

	logger := logging.NewLogger("QueueConsumer")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing error", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client:     client,
		server:     server,
		mux:        mux,
		controller: cfg.Controller,
		config:     cfg,
		logger:     logger,
	}

	mux.HandleFunc(TaskTypeProcessDocument, consumer.handleProcessDocument)

	return consumer, nil
}

// Start starts the queue consumer.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("starting queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("queue consumer stopped with error", "error", err)
		}
	}()

	return nil
}

// Stop stops the queue consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("stopping queue consumer")
	c.server.Shutdown()
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}
	c.logger.Info("queue consumer stopped")
	return nil
}

// handleProcessDocument adapts one asynq delivery into a lifecycle.Task
// and maps the controller's Outcome back to asynq's success/retry
// contract.
func (c *Consumer) handleProcessDocument(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload can never succeed on retry.
		return fmt.Errorf("%w: unmarshal task payload: %v", asynq.SkipRetry, err)
	}

	method := payload.Method
	if method == "" {
		method = string(domain.MethodDocling)
	}
	ocrMode := payload.OCR
	if ocrMode == "" {
		ocrMode = string(domain.OCRModeAuto)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	taskID, _ := asynq.GetTaskID(ctx)

	timeout := defaultProcessingTimeout(c.config.ProcessingTimeout)
	taskCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := c.controller.Process(taskCtx, lifecycle.Task{
		DocumentID: payload.DocumentID,
		Filename:   payload.Filename,
		Method:     extraction.Method(method),
		OCRMode:    domain.OCRMode(ocrMode),
		TaskName:   taskID,
		RetryCount: retryCount,
	})

	c.logger.Info("task processed", "document_id", payload.DocumentID, "status", outcome.Status, "http_status", outcome.HTTPStatus)

	if outcome.HTTPStatus == 503 {
		return fmt.Errorf("transient failure: %s", outcome.ErrorMessage)
	}
	return nil
}

func defaultProcessingTimeout(configuredMS int64) time.Duration {
	if configuredMS > 0 {
		return time.Duration(configuredMS) * time.Millisecond
	}
	return 5 * time.Minute
}

// GetStatistics returns consumer statistics.
func (c *Consumer) GetStatistics() map[string]interface{} {
	return map[string]interface{}{
		"concurrency": c.config.Concurrency,
		"queue":       c.config.QueueName,
		"redisURL":    c.config.RedisURL,
	}
}
