package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/orders-api/pkg/circuitbreaker"
	"github.com/jwalitptl/orders-api/pkg/messaging"
)

// maxReceiveBackoff caps the wait between failed receives on a subscription.
const maxReceiveBackoff = 5 * time.Second

const defaultRetryBackoff = 100 * time.Millisecond

type RedisBroker struct {
	client       *redis.Client
	cb           *circuitbreaker.CircuitBreaker
	retryBackoff time.Duration
	logger       zerolog.Logger
}

type Config struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

func NewRedisBroker(ctx context.Context, config Config, logger zerolog.Logger) (messaging.Broker, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.RetryBackoff
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	opts.MinIdleConns = config.MinIdleConns

	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBroker{
		client: client,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "redis-broker",
			MaxFailures: 5,
			Timeout:     5 * time.Second,
		}),
		retryBackoff: backoff,
		logger: logger.With().Str("component", "redis-broker").Logger(),
	}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return b.cb.Execute(func() error {
		return b.client.Publish(ctx, channel, payload).Err()
	})
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	msgChan := make(chan []byte, 100)

	go func() {
		defer pubsub.Close()
		b.pump(ctx, channel, pubsub.ReceiveMessage, msgChan)
	}()

	return msgChan, nil
}

type receiveFunc func(ctx context.Context) (*redis.Message, error)

// pump forwards payloads from receive to out until ctx ends or the
// subscription closes, then closes out. Consecutive receive failures back
// off exponentially up to maxReceiveBackoff.
func (b *RedisBroker) pump(ctx context.Context, channel string, receive receiveFunc, out chan<- []byte) {
	defer close(out)

	backoff := b.retryBackoff
	for {
		msg, err := receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return
			}
			b.logger.Warn().Err(err).Str("channel", channel).Dur("retry_in", backoff).Msg("receive failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			backoff = min(backoff*2, maxReceiveBackoff)
			continue
		}
		backoff = b.retryBackoff

		select {
		case out <- []byte(msg.Payload):
		case <-ctx.Done():
			return
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
