package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/clearway/clearway/pkg/models"
)

const queueKeyPrefix = "clearway:track:"

// QueueKey returns the redis list key for a track's work queue.
func QueueKey(track models.Track) string {
	return queueKeyPrefix + string(track)
}

// RedisDispatcher pushes task envelopes onto per-track redis lists. Team
// tooling consumes them with BLPOP.
type RedisDispatcher struct {
	client  redis.UniversalClient
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisDispatcher connects to redis and verifies the connection.
func NewRedisDispatcher(ctx context.Context, redisURL string, timeout time.Duration, logger *slog.Logger) (*RedisDispatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to redis", "addr", opts.Addr)

	return &RedisDispatcher{
		client:  client,
		timeout: timeout,
		logger:  logger.With("module", "redis_dispatcher"),
	}, nil
}

// Dispatch serializes the task envelope and pushes it to the track queue.
func (d *RedisDispatcher) Dispatch(ctx context.Context, task *models.WorkflowTask) error {
	payload, err := json.Marshal(NewEnvelope(task))
	if err != nil {
		return fmt.Errorf("failed to serialize task envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	key := QueueKey(task.Track)

	if err := d.client.RPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push task to queue %s: %w", key, err)
	}

	d.logger.InfoContext(ctx, "Dispatched task",
		"task_id", task.ID,
		"request_id", task.RequestID,
		"queue", key,
	)

	return nil
}

// Close releases the redis connection.
func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}
