// Package changefeed carries store change notifications between API
// instances over Redis pub/sub.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"folio/api/internal/store"
)

// Change is the payload published for each changed collection.
type Change struct {
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// RedisNotifier implements store.Notifier on Redis channels, one channel per
// collection.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

var _ store.Notifier = (*RedisNotifier)(nil)

// NewRedisNotifier connects to redisURL and verifies the connection.
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

// NewRedisNotifierWithClient wraps an existing Redis client.
func NewRedisNotifierWithClient(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		prefix: "folio:changes:",
	}
}

func (n *RedisNotifier) channel(collection string) string {
	return n.prefix + collection
}

// Publish announces a change to each collection.
func (n *RedisNotifier) Publish(ctx context.Context, collections ...string) error {
	var errs []error
	for _, collection := range collections {
		payload, err := json.Marshal(Change{Collection: collection, At: time.Now().UTC()})
		if err != nil {
			errs = append(errs, fmt.Errorf("marshal change: %w", err))
			continue
		}
		if err := n.client.Publish(ctx, n.channel(collection), payload).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", collection, err))
		}
	}
	return errors.Join(errs...)
}

// Listen subscribes to changes of collection. The subscription is confirmed
// by Redis before Listen returns, so a publish that happens afterwards is
// never missed.
func (n *RedisNotifier) Listen(ctx context.Context, collection string) (<-chan struct{}, error) {
	pubsub := n.client.Subscribe(ctx, n.channel(collection))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	messages := pubsub.Channel()
	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil || change.Collection != collection {
					continue
				}
				store.Signal(out)
			}
		}
	}()
	return out, nil
}

// Ping checks the Redis connection.
func (n *RedisNotifier) Ping(ctx context.Context) error {
	return n.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
