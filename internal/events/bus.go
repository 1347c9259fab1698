package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"switchboard.app/server/core/config"
)

// Bus bundles the publisher and, when requested, the consumer of the configured backend.
type Bus struct {
	Publisher Publisher
	Consumer  Consumer
}

// Open connects to the backend selected by cfg.Kind. The consumer is only
// created when withConsumer is set, i.e. when this process runs the router.
func Open(ctx context.Context, cfg config.EventBusConfig, withConsumer bool, logger *slog.Logger) (*Bus, error) {
	switch cfg.Kind {
	case config.EventBusRedis:
		return openRedis(ctx, cfg, withConsumer, logger)
	case config.EventBusRabbitMQ:
		return openAMQP(cfg, withConsumer, logger)
	case config.EventBusMemory:
		bus := NewMemoryBus(int(cfg.BatchSize)*64, int(cfg.BatchSize), cfg.Block)
		b := &Bus{Publisher: bus}
		if withConsumer {
			b.Consumer = bus
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown event bus %q", cfg.Kind)
	}
}

func openRedis(ctx context.Context, cfg config.EventBusConfig, withConsumer bool, logger *slog.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	pubClient := redis.NewClient(opts)
	if err := pubClient.Ping(ctx).Err(); err != nil {
		_ = pubClient.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	b := &Bus{Publisher: NewRedisPublisher(pubClient, cfg.RedisStream, logger)}
	if !withConsumer {
		return b, nil
	}

	// Blocking XREADGROUP holds its connection, so the consumer gets its own client.
	consumer, err := NewRedisConsumer(ctx, redis.NewClient(opts), RedisConsumerConfig{
		Stream:          cfg.RedisStream,
		Group:           cfg.RedisGroup,
		Consumer:        cfg.RedisConsumer,
		BatchSize:       cfg.BatchSize,
		Block:           cfg.Block,
		ReclaimMinIdle:  cfg.ReclaimMinIdle,
		ReclaimInterval: cfg.ReclaimInterval,
	})
	if err != nil {
		_ = pubClient.Close()
		return nil, err
	}
	b.Consumer = consumer
	return b, nil
}

func openAMQP(cfg config.EventBusConfig, withConsumer bool, logger *slog.Logger) (*Bus, error) {
	pub, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, err
	}

	b := &Bus{Publisher: pub}
	if !withConsumer {
		return b, nil
	}

	consumer, err := NewAMQPConsumer(AMQPConsumerConfig{
		URL:       cfg.AMQPURL,
		Exchange:  cfg.AMQPExchange,
		Queue:     cfg.AMQPQueue,
		BatchSize: int(cfg.BatchSize),
		Block:     cfg.Block,
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	b.Consumer = consumer
	return b, nil
}

// Close closes both sides. MemoryBus tolerates being closed twice.
func (b *Bus) Close() error {
	var errs []error
	if b.Consumer != nil {
		errs = append(errs, b.Consumer.Close())
	}
	if b.Publisher != nil {
		errs = append(errs, b.Publisher.Close())
	}
	return errors.Join(errs...)
}
