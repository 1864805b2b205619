package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "dns-converge:"

// RedisRuntime keeps runtime settings in redis so that instances sharing a
// deployment see the same learned values.
type RedisRuntime struct {
	client *redis.Client
	prefix string
}

// NewRedisRuntime connects to addr and verifies the connection. namespace
// separates deployments sharing one redis.
func NewRedisRuntime(ctx context.Context, addr, password, namespace string) (*RedisRuntime, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisRuntime{client: client, prefix: redisKeyPrefix + namespace + ":"}, nil
}

func (r *RedisRuntime) key(name string) string {
	return r.prefix + name
}

func (r *RedisRuntime) VMIP(ctx context.Context) (string, error) {
	ip, err := r.client.Get(ctx, r.key(settingVMIP)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return ip, err
}

func (r *RedisRuntime) SetVMIP(ctx context.Context, ip string) error {
	return r.client.Set(ctx, r.key(settingVMIP), ip, 0).Err()
}

func (r *RedisRuntime) Close() error {
	return r.client.Close()
}
