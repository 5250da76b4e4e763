package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis receives frames from a redis pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
}

// ConnectRedis builds a client from a redis:// URL or a host:port address.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// NewRedis creates a pub/sub transport on channel.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (t *Redis) Name() string { return "redis" }

func (t *Redis) Open(ctx context.Context) (Stream, error) {
	ps := t.client.Subscribe(ctx, t.channel)
	// Receive waits for the subscription confirmation.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", t.channel, err)
	}
	return &redisStream{ps: ps, ch: ps.Channel()}, nil
}

// Close releases the client.
func (t *Redis) Close() error { return t.client.Close() }

type redisStream struct {
	ps *redis.PubSub
	ch <-chan *redis.Message
}

func (s *redisStream) Recv(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-s.ch:
		if !ok {
			return nil, errors.New("redis: subscription closed")
		}
		return []byte(msg.Payload), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *redisStream) Close() error { return s.ps.Close() }
