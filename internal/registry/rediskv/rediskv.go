// Package rediskv backs the registry's local-storage capability with Redis.
// No TTLs: registry entries live until the user removes them.
package rediskv

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type KV struct {
	c *redis.Client
}

func New(addr string) *KV {
	return &KV{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.c.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *KV) Close() error {
	return r.c.Close()
}
