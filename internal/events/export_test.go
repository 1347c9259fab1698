package events

import (
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// NewAMQPConsumerFromChannel builds a consumer over an existing delivery
// channel, without a broker connection. Close must not be called on it.
func NewAMQPConsumerFromChannel(msgs <-chan amqp091.Delivery, cfg AMQPConsumerConfig) *AMQPConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	return &AMQPConsumer{msgs: msgs, cfg: cfg, log: slog.Default()}
}
