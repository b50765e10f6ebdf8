// Package notify fans decision events out to waiting requests through Redis
// pub/sub, so a long-poll does not have to sleep a full interval.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "mdreview:decision:"

// RedisNotifier publishes and subscribes to per-review decision channels.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

// NewRedisNotifier connects to Redis and verifies the connection.
func NewRedisNotifier(redisURL string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisNotifierWithClient(client), nil
}

// NewRedisNotifierWithClient wraps an existing client.
func NewRedisNotifierWithClient(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: channelPrefix}
}

func (n *RedisNotifier) channel(reviewID string) string {
	return n.prefix + reviewID
}

// Publish announces that the review's decision state changed.
func (n *RedisNotifier) Publish(ctx context.Context, reviewID string) error {
	if err := n.client.Publish(ctx, n.channel(reviewID), "decided").Err(); err != nil {
		return fmt.Errorf("publish decision: %w", err)
	}
	return nil
}

// Subscribe returns a channel that receives a value per published event for
// reviewID. The channel stays open until the returned cancel func is called;
// pending events coalesce into one.
func (n *RedisNotifier) Subscribe(ctx context.Context, reviewID string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(reviewID))
	// wait for the subscribe confirmation before handing out the channel
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe decision: %w", err)
	}

	wake := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		messages := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-messages:
				if !ok {
					return
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}
	}()

	cancel := func() {
		close(done)
		_ = pubsub.Close()
	}
	return wake, cancel, nil
}

// Ping checks if Redis is reachable.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
