/**
 * Direct Redis queue consumer for the loan-document processing worker.
 *
 * An alternative §6.1 intake path for producers that push directly onto
 * a Redis LIST instead of going through Asynq: simple BRPOP-based
 * polling with the job body kept in a companion hash, compatible with
 * a plain Redis LIST/HASH producer that has no Asynq client available.
 */
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverant/nexus/loanprocess-worker/internal/domain"
	"github.com/adverant/nexus/loanprocess-worker/internal/extraction"
	"github.com/adverant/nexus/loanprocess-worker/internal/lifecycle"
	"github.com/adverant/nexus/loanprocess-worker/internal/logging"
)

// RedisJobData is one §6.1 task delivery as carried on the direct
// Redis queue, with the retry count the consumer increments when it
// re-pushes the job after a transient failure.
type RedisJobData struct {
	ID         string      `json:"id"`
	Payload    TaskPayload `json:"payload"`
	CreatedAt  time.Time   `json:"createdAt"`
	RetryCount int         `json:"retryCount"`
}

// RedisConsumer handles job consumption directly off a Redis LIST.
type RedisConsumer struct {
	client     *redis.Client
	controller *lifecycle.Controller
	config     *RedisConsumerConfig
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *logging.Logger
}

// RedisConsumerConfig holds consumer configuration.
type RedisConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	Controller        *lifecycle.Controller
	ProcessingTimeout int64 // milliseconds, default 300000 (5 minutes)
}

// NewRedisConsumer creates a new Redis-based queue consumer.
func NewRedisConsumer(cfg *RedisConsumerConfig) (*RedisConsumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		cfg.QueueName = "loanprocess:jobs"
	}
	if cfg.Controller == nil {
		return nil, fmt.Errorf("Controller is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	consumerCtx, cancel := context.WithCancel(context.Background())

	return &RedisConsumer{
		client:     client,
		controller: cfg.Controller,
		config:     cfg,
		ctx:        consumerCtx,
		cancel:     cancel,
		logger:     logging.NewLogger("RedisQueueConsumer"),
	}, nil
}

// Start begins processing jobs from the queue.
func (c *RedisConsumer) Start() error {
	c.logger.Info("starting redis queue consumer", "concurrency", c.config.Concurrency, "queue", c.config.QueueName)

	for i := 0; i < c.config.Concurrency; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}

	return nil
}

// Stop gracefully stops the consumer.
func (c *RedisConsumer) Stop() error {
	c.logger.Info("stopping redis queue consumer")
	c.cancel()
	c.wg.Wait()
	return c.client.Close()
}

func (c *RedisConsumer) worker(id int) {
	defer c.wg.Done()
	c.logger.Debug("worker started", "worker_id", id)

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("worker stopping", "worker_id", id)
			return
		default:
			if err := c.processNextJob(); err != nil && err != errNoJobsAvailable {
				c.logger.Warn("worker error", "worker_id", id, "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

var errNoJobsAvailable = fmt.Errorf("no jobs available")

// processNextJob fetches and processes the next job from the queue,
// re-enqueuing it with an incremented retry count on a transient
// outcome, exactly mirroring §6.1's 503-means-redeliver contract for a
// producer with no dispatcher layer of its own.
func (c *RedisConsumer) processNextJob() error {
	result, err := c.client.BRPop(c.ctx, 5*time.Second, c.config.QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return errNoJobsAvailable
		}
		return fmt.Errorf("failed to fetch job: %w", err)
	}
	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}
	jobID := result[1]

	jobData, err := c.client.HGet(c.ctx, c.dataKey(), jobID).Result()
	if err != nil {
		return fmt.Errorf("failed to get job data: %w", err)
	}

	var job RedisJobData
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	method := job.Payload.Method
	if method == "" {
		method = string(domain.MethodDocling)
	}
	ocrMode := job.Payload.OCR
	if ocrMode == "" {
		ocrMode = string(domain.OCRModeAuto)
	}

	timeout := defaultProcessingTimeout(c.config.ProcessingTimeout)
	taskCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()

	outcome := c.controller.Process(taskCtx, lifecycle.Task{
		DocumentID: job.Payload.DocumentID,
		Filename:   job.Payload.Filename,
		Method:     extraction.Method(method),
		OCRMode:    domain.OCRMode(ocrMode),
		TaskName:   job.ID,
		RetryCount: job.RetryCount,
	})

	c.logger.Info("job processed", "job_id", job.ID, "document_id", job.Payload.DocumentID, "status", outcome.Status)

	if outcome.HTTPStatus == 503 {
		job.RetryCount++
		updated, _ := json.Marshal(job)
		c.client.HSet(c.ctx, c.dataKey(), job.ID, updated)
		c.client.LPush(c.ctx, c.config.QueueName, job.ID)
		c.logger.Warn("job re-queued after transient failure", "job_id", job.ID, "retry_count", job.RetryCount)
		return nil
	}

	c.client.HDel(c.ctx, c.dataKey(), job.ID)
	return nil
}

func (c *RedisConsumer) dataKey() string {
	return fmt.Sprintf("%s:data", c.config.QueueName)
}

// GetStats returns queue depth statistics.
func (c *RedisConsumer) GetStats() (map[string]int64, error) {
	ctx := context.Background()
	waiting, err := c.client.LLen(ctx, c.config.QueueName).Result()
	if err != nil {
		return nil, fmt.Errorf("get queue length: %w", err)
	}
	return map[string]int64{"waiting": waiting}, nil
}
