package main

import (
	"context"

	"github.com/jwalitptl/orders-api/pkg/messaging"
	"github.com/jwalitptl/orders-api/pkg/messaging/redis"
)

// newBroker connects to Redis when it is configured and falls back to a
// broker that drops every message otherwise.
func newBroker(ctx context.Context) (messaging.Broker, error) {
	if !cfg.Redis.Enabled() {
		appLogger.Info().Msg("redis not configured, order events are not published")
		return messaging.NopBroker{}, nil
	}
	return redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger)
}
