// Package queue provides a Redis list trigger that feeds the admission
// queue: each popped message submits one workflow execution.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowkite/flowkite/pkg/services"
)

const (
	defaultQueueName = "flowkite:executions"
	defaultOwner     = "queue-trigger"
)

// TriggerQueue tags executions created by this trigger.
const TriggerQueue = "queue"

// message is the payload producers push onto the list.
type message struct {
	WorkflowID string         `json:"workflow_id"`
	Owner      string         `json:"owner"`
	Variables  map[string]any `json:"variables,omitempty"`
}

type Trigger struct {
	redisURL string
	queue    string

	client redis.UniversalClient
	engine *services.Engine
	logger *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewTrigger(redisURL, queueName string, engine *services.Engine, logger *slog.Logger) *Trigger {
	if queueName == "" {
		queueName = defaultQueueName
	}

	return &Trigger{
		redisURL: redisURL,
		queue:    queueName,
		engine:   engine,
		stopCh:   make(chan struct{}),
		logger: logger.With(
			"module", "queue_trigger",
			"queue", queueName,
		),
	}
}

func (t *Trigger) Start(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Starting queue trigger")

	if err := t.initializeClient(ctx); err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	t.wg.Add(1)

	go t.consume(ctx)

	return nil
}

func (t *Trigger) initializeClient(ctx context.Context) error {
	options, err := redis.ParseURL(t.redisURL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	t.client = redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	t.logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return nil
}

func (t *Trigger) consume(ctx context.Context) {
	defer t.wg.Done()

	t.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-t.stopCh:
			t.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			t.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			if err := t.processMessage(ctx); err != nil {
				t.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (t *Trigger) processMessage(ctx context.Context) error {
	result, err := t.client.BLPop(ctx, 1*time.Second, t.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	raw := result[1]

	msg, err := decodeMessage(raw)
	if err != nil {
		return err
	}

	executionID, err := t.engine.Execute(ctx, msg.WorkflowID, msg.Owner, services.ExecuteOptions{
		Variables: msg.Variables,
		Trigger:   TriggerQueue,
	})
	if err != nil {
		return fmt.Errorf("failed to submit execution for workflow %s: %w", msg.WorkflowID, err)
	}

	t.logger.InfoContext(ctx, "Execution submitted from queue",
		"workflow_id", msg.WorkflowID,
		"execution_id", executionID)

	return nil
}

func decodeMessage(raw string) (*message, error) {
	var msg message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("malformed queue message %q: %w", raw, err)
	}

	if msg.WorkflowID == "" {
		return nil, fmt.Errorf("queue message missing workflow_id: %q", raw)
	}

	if msg.Owner == "" {
		msg.Owner = defaultOwner
	}

	return &msg, nil
}

func (t *Trigger) Stop(ctx context.Context) error {
	t.logger.InfoContext(ctx, "Stopping queue trigger")

	close(t.stopCh)
	t.wg.Wait()

	if t.client != nil {
		if err := t.client.Close(); err != nil {
			t.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
