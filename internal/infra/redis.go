package infra

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// NewRedis builds the client shared by the notification/email job queues and
// their DLQs. Connectivity is validated up front: a pedidos instance whose
// queues are unreachable should refuse to start rather than silently drop
// every webhook.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
