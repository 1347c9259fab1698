package events_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rabbitmq/amqp091-go"

	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
)

type nackCall struct {
	Tag     uint64
	Requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []nackCall
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, nackCall{Tag: tag, Requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

var _ = Describe("AMQPConsumer", func() {
	var (
		ctx   context.Context
		acker *fakeAcknowledger
		msgs  chan amqp091.Delivery
	)

	BeforeEach(func() {
		ctx = context.Background()
		acker = &fakeAcknowledger{}
		msgs = make(chan amqp091.Delivery, 8)
	})

	delivery := func(tag uint64, body []byte) amqp091.Delivery {
		return amqp091.Delivery{
			Acknowledger: acker,
			DeliveryTag:  tag,
			MessageId:    fmt.Sprintf("msg-%d", tag),
			Body:         body,
		}
	}

	eventBody := func(id int64) []byte {
		b, err := json.Marshal(events.MessageEvent{MessageID: id, Direction: model.DirectionOutgoing})
		Expect(err).NotTo(HaveOccurred())
		return b
	}

	newConsumer := func(batch int) *events.AMQPConsumer {
		return events.NewAMQPConsumerFromChannel(msgs, events.AMQPConsumerConfig{
			BatchSize: batch,
			Block:     20 * time.Millisecond,
		})
	}

	It("returns buffered deliveries up to the batch size", func() {
		for i := uint64(1); i <= 3; i++ {
			msgs <- delivery(i, eventBody(int64(i)))
		}
		consumer := newConsumer(2)

		first, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(2))
		Expect(first[0].Event.MessageID).To(Equal(int64(1)))
		Expect(first[1].Event.MessageID).To(Equal(int64(2)))

		second, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(HaveLen(1))
		Expect(second[0].ID).To(Equal("msg-3"))
	})

	It("returns an empty batch after the block timeout", func() {
		batch, err := newConsumer(4).Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch).To(BeEmpty())
	})

	It("nacks unparsable bodies without requeueing them", func() {
		msgs <- delivery(1, []byte("{not json"))
		msgs <- delivery(2, eventBody(2))

		batch, err := newConsumer(4).Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch).To(HaveLen(1))
		Expect(batch[0].Event.MessageID).To(Equal(int64(2)))
		Expect(acker.nacks).To(Equal([]nackCall{{Tag: 1, Requeue: false}}))
		Expect(acker.acks).To(BeEmpty())
	})

	It("acks a delivery by its tag", func() {
		msgs <- delivery(5, eventBody(5))
		consumer := newConsumer(1)

		batch, err := consumer.Read(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumer.Ack(ctx, batch[0])).To(Succeed())
		Expect(acker.acks).To(Equal([]uint64{5}))
	})

	It("fails once the broker closes the delivery channel", func() {
		close(msgs)
		_, err := newConsumer(1).Read(ctx)
		Expect(err).To(MatchError(ContainSubstring("delivery channel closed")))
	})

	It("stops on context cancellation", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := newConsumer(1).Read(cancelled)
		Expect(err).To(MatchError(context.Canceled))
	})
})
