package outbound_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/outbound"
)

var _ = Describe("Router on Redis Streams", func() {
	const (
		stream = "conversation_messages"
		group  = "outbound_router"
	)

	var (
		ctx context.Context
		mr  *miniredis.Miniredis
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		mr.Close()
	})

	newConsumer := func() *events.RedisConsumer {
		c, err := events.NewRedisConsumer(ctx, redis.NewClient(&redis.Options{Addr: mr.Addr()}), events.RedisConsumerConfig{
			Stream:    stream,
			Group:     group,
			Consumer:  "router-1",
			BatchSize: 8,
			Block:     10 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		return c
	}

	It("dispatches an unacked backlog exactly once after a restart", func() {
		crashed := newConsumer()
		defer crashed.Close()

		publisher := events.NewRedisPublisher(redis.NewClient(&redis.Options{Addr: mr.Addr()}), stream, nil)
		defer publisher.Close()
		for i := int64(1); i <= 3; i++ {
			Expect(publisher.Publish(ctx, outgoing("", i, "app:slack:101").Event)).To(Succeed())
		}

		// Read without acking, as a router that died mid-dispatch would.
		var read int
		for i := 0; i < 3; i++ {
			batch, err := crashed.Read(ctx)
			Expect(err).NotTo(HaveOccurred())
			read += len(batch)
		}
		Expect(read).To(Equal(3))

		restarted := newConsumer()
		defer restarted.Close()
		slack := &fakeHandler{}
		router := outbound.New(restarted, fakeIntegrations{
			101: {ID: 101, TenantID: "tenant-a", PlatformID: "slack", IsEnabled: true},
		}, fakeHandlers{"slack": slack}, outbound.Config{Shards: 2, QueueSize: 8, ShutdownTimeout: time.Second}, nil)

		runErr := make(chan error, 1)
		go func() { runErr <- router.Run(ctx) }()

		Eventually(slack.sentMessages).Should(ConsistOf(sent{101, 1}, sent{101, 2}, sent{101, 3}))
		Consistently(slack.sentMessages, 200*time.Millisecond).Should(HaveLen(3))

		router.Stop()
		Eventually(runErr).Should(Receive(BeNil()))

		pending, err := redis.NewClient(&redis.Options{Addr: mr.Addr()}).XPending(ctx, stream, group).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(BeZero())
	})
})
