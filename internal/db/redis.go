package db

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InitRedis принимает адрес явно (а не через os.Getenv) и проверяет соединение.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
