package notify

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Publisher — подмножество *redis.Client, которое нужно синку.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis публикует события json-ом в pub/sub канал для внешних потребителей.
type Redis struct {
	client  Publisher
	channel string
}

func NewRedis(client Publisher, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Notify(ctx context.Context, e Event) error {
	payload, err := sonic.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", r.channel)
	}
	return nil
}
