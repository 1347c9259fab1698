package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// routingKey is "message.{direction}" so consumers can bind to one direction.
func routingKey(ev MessageEvent) string {
	return "message." + string(ev.Direction)
}

type amqpPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *slog.Logger
}

func NewAMQPPublisher(url, exchange string, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &amqpPublisher{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, ev MessageEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening amqp channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding message event: %w", err)
	}

	headers := amqp091.Table{}
	if ev.TraceID != "" {
		headers["trace_id"] = ev.TraceID
	}

	if err := ch.PublishWithContext(ctx, p.exchange, routingKey(ev), false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     uuid.NewString(),
		CorrelationId: strconv.FormatInt(ev.MessageID, 10),
		Timestamp:     time.Now(),
		Headers:       headers,
		Body:          body,
	}); err != nil {
		return fmt.Errorf("publish message event: %w", err)
	}

	p.logger.DebugContext(ctx, "published message event", "message_id", ev.MessageID, "exchange", p.exchange)
	return nil
}

func (p *amqpPublisher) Close() error {
	return p.conn.Close()
}

type AMQPConsumerConfig struct {
	URL       string
	Exchange  string
	Queue     string
	BatchSize int
	Block     time.Duration
}

type AMQPConsumer struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
	msgs <-chan amqp091.Delivery
	cfg  AMQPConsumerConfig
	log  *slog.Logger
}

func NewAMQPConsumer(cfg AMQPConsumerConfig, logger *slog.Logger) (*AMQPConsumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}

	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	fail := func(err error) (*AMQPConsumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declaring exchange %s: %w", cfg.Exchange, err))
	}
	if err := ch.Qos(cfg.BatchSize, 0, false); err != nil {
		return fail(fmt.Errorf("setting qos: %w", err))
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("declaring queue %s: %w", cfg.Queue, err))
	}
	if err := ch.QueueBind(q.Name, "message.#", cfg.Exchange, false, nil); err != nil {
		return fail(fmt.Errorf("binding queue %s: %w", cfg.Queue, err))
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("consuming queue %s: %w", cfg.Queue, err))
	}

	return &AMQPConsumer{
		conn: conn,
		ch:   ch,
		msgs: msgs,
		cfg:  cfg,
		log:  logger,
	}, nil
}

func (c *AMQPConsumer) Read(ctx context.Context) ([]Delivery, error) {
	timer := time.NewTimer(c.cfg.Block)
	defer timer.Stop()

	var out []Delivery
	for len(out) < c.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-timer.C:
			return out, nil
		case msg, ok := <-c.msgs:
			if !ok {
				return out, fmt.Errorf("amqp delivery channel closed")
			}

			var ev MessageEvent
			if err := json.Unmarshal(msg.Body, &ev); err != nil {
				c.log.ErrorContext(ctx, "failed to parse message event", "error", err, "amqp_message_id", msg.MessageId)
				_ = msg.Nack(false, false)
				continue
			}

			m := msg
			out = append(out, Delivery{
				ID:    msg.MessageId,
				Event: ev,
				ack: func(context.Context) error {
					return m.Ack(false)
				},
			})

			// Return what is buffered without waiting for a full batch.
			if len(c.msgs) == 0 {
				return out, nil
			}
		}
	}
	return out, nil
}

func (c *AMQPConsumer) Ack(ctx context.Context, d Delivery) error {
	if d.ack == nil {
		return nil
	}
	if err := d.ack(ctx); err != nil {
		return fmt.Errorf("amqp ack %s: %w", d.ID, err)
	}
	return nil
}

func (c *AMQPConsumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}
