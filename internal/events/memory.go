package events

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

var ErrBusClosed = errors.New("event bus closed")

// MemoryBus is an in-process bounded bus that is both Publisher and Consumer.
// It only works when publisher and router share a process.
type MemoryBus struct {
	ch        chan MessageEvent
	batchSize int
	block     time.Duration
	seq       atomic.Int64

	mu     sync.RWMutex
	closed bool
}

func NewMemoryBus(capacity, batchSize int, block time.Duration) *MemoryBus {
	if capacity <= 0 {
		capacity = 1024
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &MemoryBus{
		ch:        make(chan MessageEvent, capacity),
		batchSize: batchSize,
		block:     block,
	}
}

// Publish blocks while the bus is full, until ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, ev MessageEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBus) Read(ctx context.Context) ([]Delivery, error) {
	timer := time.NewTimer(b.block)
	defer timer.Stop()

	var out []Delivery
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return []Delivery{}, nil
	case ev, ok := <-b.ch:
		if !ok {
			return nil, ErrBusClosed
		}
		out = append(out, b.delivery(ev))
	}

	for len(out) < b.batchSize {
		select {
		case ev, ok := <-b.ch:
			if !ok {
				return out, nil
			}
			out = append(out, b.delivery(ev))
		default:
			return out, nil
		}
	}
	return out, nil
}

func (b *MemoryBus) delivery(ev MessageEvent) Delivery {
	return Delivery{ID: strconv.FormatInt(b.seq.Add(1), 10), Event: ev}
}

func (b *MemoryBus) Ack(context.Context, Delivery) error {
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	return nil
}
