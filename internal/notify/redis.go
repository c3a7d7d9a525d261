package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis publishes events with PUBLISH; subscribers listen on the channel name.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Publish(ctx context.Context, channel string, ev Event) error {
	body, err := ev.JSON()
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	return r.client.Publish(ctx, channel, body).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
