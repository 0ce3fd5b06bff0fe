package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/sessionkit/application/port/outbound"
	"github.com/fixora/sessionkit/infrastructure/service/logger"
)

// RedisBroadcast carries session envelopes over a redis pub/sub channel.
// Pub/sub persists nothing, which is exactly the contract: a message notifies
// live processes and leaves no residue for future ones to replay.
type RedisBroadcast struct {
	client  *redis.Client
	sub     *redis.PubSub
	channel string
	logger  logger.Logger
	done    chan struct{}
}

func NewRedisBroadcast(redisURL, channel string, log logger.Logger) (*RedisBroadcast, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	sub := client.Subscribe(context.Background(), channel)

	log.Info(ctx, "Redis broadcast initialized", map[string]interface{}{
		"channel": channel,
	})

	return &RedisBroadcast{
		client:  client,
		sub:     sub,
		channel: channel,
		logger:  log,
		done:    make(chan struct{}),
	}, nil
}

func (b *RedisBroadcast) Publish(ctx context.Context, env outbound.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode broadcast envelope: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast envelope: %w", err)
	}
	return nil
}

func (b *RedisBroadcast) Subscribe(handler func(outbound.Envelope)) {
	go func() {
		ch := b.sub.Channel()
		for {
			select {
			case <-b.done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env outbound.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.Warn(context.Background(), "Dropping malformed broadcast message", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				handler(env)
			}
		}
	}()
}

func (b *RedisBroadcast) Close() error {
	close(b.done)
	if err := b.sub.Close(); err != nil {
		b.logger.Warn(context.Background(), "Failed to close Redis subscription", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return b.client.Close()
}
