// Package events hosts the engine observers that carry job events out of
// the process: a Redis feed, completion webhooks and audio cleanup.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makeasinger/genqueue/internal/model"
)

const (
	// DefaultChannel is the Redis pub/sub channel job events go to.
	DefaultChannel = "genqueue:events"

	snapshotTTL    = 24 * time.Hour
	publishTimeout = 2 * time.Second
)

// RedisPublisher mirrors job events into Redis: every event is published
// on a channel, and the latest snapshot of each job is kept under
// genqueue:job:<id> so other processes can read it.
type RedisPublisher struct {
	redis   *redis.Client
	channel string
}

// NewRedisPublisher creates a publisher on channel, or DefaultChannel when
// channel is empty.
func NewRedisPublisher(redisClient *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{redis: redisClient, channel: channel}
}

// Publish implements scheduler.Observer
func (p *RedisPublisher) Publish(evt model.JobEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.publish(ctx, evt); err != nil {
		slog.Warn("failed to mirror job event to redis", "job_id", evt.Job.ID, "type", evt.Type, "error", err)
	}
}

func (p *RedisPublisher) publish(ctx context.Context, evt model.JobEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := p.redis.TxPipeline()
	pipe.Publish(ctx, p.channel, data)
	if evt.Type == model.JobEventRemoved {
		pipe.Del(ctx, jobKey(evt.Job.ID))
	} else {
		snap, err := json.Marshal(evt.Job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}
		pipe.Set(ctx, jobKey(evt.Job.ID), snap, snapshotTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe returns a subscription to the event channel
func (p *RedisPublisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.redis.Subscribe(ctx, p.channel)
}

func jobKey(id string) string {
	return fmt.Sprintf("genqueue:job:%s", id)
}
