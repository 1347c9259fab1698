package outbound_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/outbound"
	"switchboard.app/server/internal/platform"
)

var _ = Describe("Router", func() {
	var (
		consumer     *fakeConsumer
		integrations fakeIntegrations
		slack        *fakeHandler
		teams        *fakeHandler
		router       *outbound.Router
		runErr       chan error
		ratePerSec   float64
	)

	BeforeEach(func() {
		consumer = newFakeConsumer()
		integrations = fakeIntegrations{
			101: {ID: 101, TenantID: "tenant-a", PlatformID: "slack", IsEnabled: true},
			102: {ID: 102, TenantID: "tenant-a", PlatformID: "slack", IsEnabled: false},
			103: {ID: 103, TenantID: "tenant-a", PlatformID: "msteams", IsEnabled: true},
			104: {ID: 104, TenantID: "tenant-b", PlatformID: "slack", IsEnabled: true},
			105: {ID: 105, TenantID: "tenant-a", PlatformID: "fax", IsEnabled: true},
		}
		slack = &fakeHandler{}
		teams = &fakeHandler{}
		ratePerSec = 0
	})

	start := func() {
		router = outbound.New(consumer, integrations, fakeHandlers{"slack": slack, "msteams": teams}, outbound.Config{
			Shards:          4,
			QueueSize:       8,
			ShutdownTimeout: time.Second,
			DispatchTimeout: time.Second,
			RatePerSecond:   ratePerSec,
			RateBurst:       1,
		}, nil)
		runErr = make(chan error, 1)
		go func() { runErr <- router.Run(context.Background()) }()
	}

	AfterEach(func() {
		if router != nil {
			router.Stop()
			Eventually(runErr).Should(Receive(BeNil()))
			router = nil
		}
	})

	It("delivers each outgoing event exactly once and acks it", func() {
		start()
		consumer.push(
			outgoing("1-0", 1, "app:slack:101"),
			outgoing("2-0", 2, "app:msteams:103"),
			outgoing("3-0", 3, "app:slack:101"),
		)

		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0", "3-0"))
		Expect(slack.sentMessages()).To(ConsistOf(sent{101, 1}, sent{101, 3}))
		Expect(teams.sentMessages()).To(ConsistOf(sent{103, 2}))
	})

	It("acks but ignores inbound events and non-app origins", func() {
		start()
		inbound := outgoing("1-0", 1, "app:slack:101")
		inbound.Event.Direction = model.DirectionInbound
		consumer.push(inbound, outgoing("2-0", 2, ""), outgoing("3-0", 3, "workflow:abc"))

		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0", "3-0"))
		Expect(slack.sentMessages()).To(BeEmpty())
	})

	DescribeTable("drops malformed app origins",
		func(origin string) {
			start()
			consumer.push(outgoing("1-0", 1, origin), outgoing("2-0", 2, "app:slack:101"))

			Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0"))
			Expect(slack.sentMessages()).To(ConsistOf(sent{101, 2}))
		},
		Entry("missing integration", "app:slack"),
		Entry("non numeric integration", "app:slack:abc"),
		Entry("empty platform", "app::101"),
		Entry("extra segment", "app:slack:101:x"),
		Entry("zero integration", "app:slack:0"),
	)

	DescribeTable("skips events it must not deliver",
		func(origin string) {
			start()
			consumer.push(outgoing("1-0", 1, origin))

			Eventually(consumer.ackedIDs).Should(ConsistOf("1-0"))
			Consistently(slack.sentMessages, 50*time.Millisecond).Should(BeEmpty())
			Expect(teams.sentMessages()).To(BeEmpty())
		},
		Entry("disabled integration", "app:slack:102"),
		Entry("unknown integration", "app:slack:999"),
		Entry("platform mismatch", "app:slack:103"),
		Entry("other tenant", "app:slack:104"),
		Entry("platform without handler", "app:fax:105"),
	)

	It("releases the rate limiter of a disabled integration", func() {
		ratePerSec = 0.001
		start()

		consumer.push(outgoing("1-0", 1, "app:slack:101"))
		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0"))
		Expect(slack.sentMessages()).To(ConsistOf(sent{101, 1}))

		integrations[101].IsEnabled = false
		consumer.push(outgoing("2-0", 2, "app:slack:101"))
		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0"))

		// The spent burst would hold this send for about 1000s had the
		// limiter survived the disable.
		integrations[101].IsEnabled = true
		consumer.push(outgoing("3-0", 3, "app:slack:101"))
		Eventually(slack.sentMessages, time.Second).Should(ConsistOf(sent{101, 1}, sent{101, 3}))
	})

	It("keeps per-integration order while integrations run concurrently", func() {
		slack.sendFn = func(platform.OutboundMessage) error {
			time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
			return nil
		}
		start()

		const n = 30
		for i := 1; i <= n; i++ {
			consumer.push(
				outgoing(fmt.Sprintf("a-%d", i), int64(i), "app:slack:101"),
				outgoing(fmt.Sprintf("b-%d", i), int64(1000+i), "app:msteams:103"),
			)
		}

		Eventually(consumer.ackedIDs).Should(HaveLen(2 * n))

		var order []int64
		for _, s := range slack.sentMessages() {
			order = append(order, s.MessageID)
		}
		Expect(order).To(HaveLen(n))
		for i := range order {
			Expect(order[i]).To(Equal(int64(i + 1)))
		}
		Expect(teams.sentMessages()).To(HaveLen(n))
	})

	It("survives handler errors and panics", func() {
		slack.sendFn = func(msg platform.OutboundMessage) error {
			switch msg.MessageID {
			case 1:
				panic("boom")
			case 2:
				return errors.New("slack api: channel_not_found")
			}
			return nil
		}
		start()
		consumer.push(
			outgoing("1-0", 1, "app:slack:101"),
			outgoing("2-0", 2, "app:slack:101"),
			outgoing("3-0", 3, "app:slack:101"),
		)

		Eventually(consumer.ackedIDs).Should(ConsistOf("1-0", "2-0", "3-0"))
		Expect(slack.sentMessages()).To(ConsistOf(sent{101, 3}))
	})

	It("finishes in-flight deliveries on stop", func() {
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		slack.sendFn = func(platform.OutboundMessage) error {
			started <- struct{}{}
			<-release
			return nil
		}
		start()
		consumer.push(outgoing("1-0", 1, "app:slack:101"))
		Eventually(started).Should(Receive())

		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			router.Stop()
		}()
		Consistently(stopped, 50*time.Millisecond).ShouldNot(BeClosed())

		close(release)
		Eventually(stopped).Should(BeClosed())
		Expect(slack.sentMessages()).To(ConsistOf(sent{101, 1}))
		Expect(consumer.ackedIDs()).To(ConsistOf("1-0"))
	})

	It("returns the context error when cancelled", func() {
		r := outbound.New(consumer, integrations, fakeHandlers{}, outbound.Config{}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.Run(ctx) }()

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("uses events from a memory bus", func() {
		bus := events.NewMemoryBus(16, 8, 10*time.Millisecond)
		r := outbound.New(bus, integrations, fakeHandlers{"slack": slack}, outbound.Config{Shards: 2}, nil)
		done := make(chan error, 1)
		go func() { done <- r.Run(context.Background()) }()

		ev := outgoing("", 9, "app:slack:101").Event
		Expect(bus.Publish(context.Background(), ev)).To(Succeed())

		Eventually(slack.sentMessages).Should(ConsistOf(sent{101, 9}))
		r.Stop()
		Eventually(done).Should(Receive(BeNil()))
	})
})
