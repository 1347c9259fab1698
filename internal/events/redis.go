package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"switchboard.app/server/common/logger"
)

type redisPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client *redis.Client, stream string, logger *slog.Logger) Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, ev MessageEvent) error {
	values, err := eventValues(ev)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("publish message event: %w", err)
	}

	p.logger.DebugContext(ctx, "published message event", "message_id", ev.MessageID, "direction", ev.Direction, "stream", p.stream)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

type RedisConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name
	BatchSize int64         // Number of messages to read per batch
	Block     time.Duration // How long to block/poll for new messages

	// Entries another consumer left unacked for ReclaimMinIdle are claimed
	// by this one, checked every ReclaimInterval. Zero disables reclaiming.
	ReclaimMinIdle  time.Duration
	ReclaimInterval time.Duration
}

type RedisConsumer struct {
	client *redis.Client
	cfg    RedisConsumerConfig

	// pendingDone flips once this consumer's unacked backlog from a previous
	// run has been read. pendingCursor is the last backlog id handed out, so
	// each backlog entry is returned once per process.
	pendingDone   bool
	pendingCursor string
	lastReclaim time.Time
	now         func() time.Time
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg RedisConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client:        client,
		cfg:           cfg,
		pendingCursor: "0",
		now:           time.Now,
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// "$" starts a new group at the tail: events published before the first
	// router ever ran are not replayed.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Delivery, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "switchboard.events.redis",
	})

	if c.pendingDone && c.reclaimDue() {
		c.lastReclaim = c.now()
		reclaimed, err := c.reclaim(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
		} else if len(reclaimed) > 0 {
			return reclaimed, nil
		}
	}

	// An id re-reads entries delivered to this consumer but never acked,
	// starting after it. ">" reads new ones.
	start := ">"
	block := c.cfg.Block
	if !c.pendingDone {
		start = c.pendingCursor
		block = -1
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, start},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.pendingDone = true
			return []Delivery{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var deliveries []Delivery
	raw := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			raw++
			if !c.pendingDone {
				c.pendingCursor = msg.ID
			}
			d, parseErr := c.parse(msg)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse message event",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				_ = c.ack(ctx, msg.ID)
				continue
			}
			deliveries = append(deliveries, d)
		}
	}

	if !c.pendingDone && raw == 0 {
		c.pendingDone = true
	}

	if len(deliveries) > 0 {
		slog.DebugContext(ctx, "read message events from stream",
			"count", len(deliveries),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return deliveries, nil
}

func (c *RedisConsumer) reclaimDue() bool {
	if c.cfg.ReclaimMinIdle <= 0 || c.cfg.ReclaimInterval <= 0 {
		return false
	}
	return c.now().Sub(c.lastReclaim) >= c.cfg.ReclaimInterval
}

// reclaim claims entries that crashed consumers read but never acked. This
// covers a router that died between XREADGROUP and XACK under another name.
func (c *RedisConsumer) reclaim(ctx context.Context) ([]Delivery, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   c.cfg.ReclaimMinIdle,
		Start:  "-",
		End:    "+",
		Count:  c.cfg.BatchSize,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending: %w", err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Consumer == c.cfg.Consumer {
			continue
		}
		ids = append(ids, p.ID)
		slog.InfoContext(ctx, "reclaiming stale message event",
			"stream_id", p.ID,
			"original_consumer", p.Consumer,
			"idle_time", p.Idle,
			"retry_count", p.RetryCount)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	messages, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ReclaimMinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}

	deliveries := make([]Delivery, 0, len(messages))
	for _, msg := range messages {
		d, parseErr := c.parse(msg)
		if parseErr != nil {
			slog.ErrorContext(ctx, "failed to parse reclaimed message event, acknowledging to prevent loop",
				"error", parseErr,
				"raw_message_id", msg.ID)
			_ = c.ack(ctx, msg.ID)
			continue
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, d Delivery) error {
	return c.ack(ctx, d.ID)
}

func (c *RedisConsumer) ack(ctx context.Context, id string) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

func (c *RedisConsumer) Close() error {
	return c.client.Close()
}

func (c *RedisConsumer) parse(msg redis.XMessage) (Delivery, error) {
	ev, err := ParseEventValues(msg.Values)
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{ID: msg.ID, Event: ev}, nil
}

func eventValues(ev MessageEvent) (map[string]any, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding message event: %w", err)
	}

	values := map[string]any{
		"message_id": ev.MessageID,
		"direction":  string(ev.Direction),
		"event":      string(body),
	}
	if ev.Origin != "" {
		values["origin"] = ev.Origin
	}
	if ev.TraceID != "" {
		values["trace_id"] = ev.TraceID
	}
	return values, nil
}

// ParseEventValues decodes the field map of a stream entry.
func ParseEventValues(values map[string]any) (MessageEvent, error) {
	raw, ok := values["event"]
	if !ok {
		return MessageEvent{}, fmt.Errorf("missing event")
	}

	var ev MessageEvent
	if err := json.Unmarshal([]byte(fmt.Sprint(raw)), &ev); err != nil {
		return MessageEvent{}, fmt.Errorf("parsing event: %w", err)
	}

	if idRaw, ok := values["message_id"]; ok {
		id, err := strconv.ParseInt(fmt.Sprint(idRaw), 10, 64)
		if err != nil {
			return MessageEvent{}, fmt.Errorf("parsing message_id: %w", err)
		}
		if ev.MessageID != 0 && ev.MessageID != id {
			return MessageEvent{}, fmt.Errorf("message_id %d does not match event body %d", id, ev.MessageID)
		}
		ev.MessageID = id
	}
	if ev.MessageID == 0 {
		return MessageEvent{}, fmt.Errorf("missing message_id")
	}

	return ev, nil
}
