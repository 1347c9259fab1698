// Package outbound delivers workflow-produced messages to their platforms.
package outbound

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"switchboard.app/server/common/logger"
	"switchboard.app/server/internal/events"
	"switchboard.app/server/internal/model"
	"switchboard.app/server/internal/platform"
	"switchboard.app/server/internal/store"
)

// IntegrationReader is the slice of the integration store the router reads.
type IntegrationReader interface {
	GetByID(ctx context.Context, id int64) (*model.AppIntegration, error)
}

// Handlers resolves the outbound handler of a platform id.
type Handlers interface {
	OutboundHandler(platformID string) (platform.OutboundHandler, error)
}

type Config struct {
	Shards          int
	QueueSize       int
	ShutdownTimeout time.Duration
	DispatchTimeout time.Duration
	RatePerSecond   float64
	RateBurst       int
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 20 * time.Second
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 15 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

type job struct {
	delivery events.Delivery
	origin   model.Origin
}

// Router reads message events and hands outgoing, app-originated ones to the
// platform handler of their integration. Events of one integration are
// dispatched in stream order; different integrations proceed concurrently.
// Delivery is best effort: every event is acked once its dispatch was attempted.
type Router struct {
	consumer     events.Consumer
	integrations IntegrationReader
	handlers     Handlers
	cfg          Config
	logger       *slog.Logger

	shards []chan job
	wg     sync.WaitGroup

	limitersMu sync.Mutex
	limiters   map[int64]*rate.Limiter

	stopOnce  sync.Once
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer events.Consumer, integrations IntegrationReader, handlers Handlers, cfg Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		consumer:     consumer,
		integrations: integrations,
		handlers:     handlers,
		cfg:          cfg.withDefaults(),
		logger:       logger,
		limiters:     make(map[int64]*rate.Limiter),
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled or Stop is called. In-flight dispatches
// get ShutdownTimeout to finish before their context is cancelled.
func (r *Router) Run(ctx context.Context) error {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "switchboard.outbound.router"})

	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		select {
		case <-r.stopCh:
			cancelRead()
		case <-readCtx.Done():
		}
	}()

	// Dispatches outlive the read loop so they can drain during shutdown.
	dispatchCtx, cancelDispatch := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDispatch()

	r.shards = make([]chan job, r.cfg.Shards)
	for i := range r.shards {
		r.shards[i] = make(chan job, r.cfg.QueueSize)
		r.wg.Add(1)
		go r.drain(dispatchCtx, r.shards[i])
	}

	r.logger.InfoContext(ctx, "outbound router started", "shards", r.cfg.Shards)

	for readCtx.Err() == nil {
		deliveries, err := r.consumer.Read(readCtx)
		if err != nil {
			if readCtx.Err() != nil {
				break
			}
			r.logger.ErrorContext(ctx, "reading message events", "error", err)
			select {
			case <-time.After(time.Second):
			case <-readCtx.Done():
			}
			continue
		}

		for _, d := range deliveries {
			if !r.route(readCtx, d) {
				break
			}
		}
	}

	r.logger.InfoContext(ctx, "outbound router stopping")
	r.shutdown(ctx, cancelDispatch)

	return ctx.Err()
}

// Stop signals Run to stop and waits for it to return.
func (r *Router) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	<-r.stoppedCh
}

// route filters an event and queues it on its integration's shard. It reports
// false when the router is shutting down and the event was left unacked.
func (r *Router) route(ctx context.Context, d events.Delivery) bool {
	ev := d.Event
	if ev.Direction != model.DirectionOutgoing || !model.IsAppOrigin(ev.Origin) {
		r.ack(ctx, d)
		return true
	}

	origin, err := model.ParseOrigin(ev.Origin)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping event with malformed origin",
			"origin", ev.Origin, "message_id", ev.MessageID, "error", err)
		r.ack(ctx, d)
		return true
	}

	shard := r.shards[uint64(origin.IntegrationID)%uint64(len(r.shards))]
	select {
	case shard <- job{delivery: d, origin: origin}:
		return true
	case <-ctx.Done():
		// Unacked events are redelivered to this consumer on restart.
		return false
	}
}

func (r *Router) drain(ctx context.Context, jobs <-chan job) {
	defer r.wg.Done()
	for j := range jobs {
		r.dispatch(ctx, j)
	}
}

func (r *Router) dispatch(ctx context.Context, j job) {
	ev := j.delivery.Event
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TenantID:      logger.Ptr(ev.TenantID),
		IntegrationID: logger.Ptr(j.origin.IntegrationID),
		Platform:      logger.Ptr(j.origin.PlatformID),
		MessageID:     logger.Ptr(ev.MessageID),
		ThreadID:      logger.Ptr(ev.ThreadID),
		StreamID:      logger.Ptr(j.delivery.ID),
	})

	sc := logger.StartSpanFromTraceID(ctx, ev.TraceID, "outbound.dispatch", trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	if err := r.deliverSafe(ctx, j); err != nil {
		sc.RecordError(err)
		r.logger.ErrorContext(ctx, "outbound delivery failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
	}

	r.ack(ctx, j.delivery)
}

func (r *Router) deliverSafe(ctx context.Context, j job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s handler: %v", j.origin.PlatformID, p)
		}
	}()
	return r.deliver(ctx, j)
}

func (r *Router) deliver(ctx context.Context, j job) error {
	ev := j.delivery.Event

	integration, err := r.integrations.GetByID(ctx, j.origin.IntegrationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.forgetLimiter(j.origin.IntegrationID)
			r.logger.WarnContext(ctx, "dropping event for unknown integration")
			return nil
		}
		return fmt.Errorf("loading integration: %w", err)
	}
	if !integration.IsEnabled {
		r.forgetLimiter(integration.ID)
		r.logger.InfoContext(ctx, "dropping event for disabled integration")
		return nil
	}
	if integration.PlatformID != j.origin.PlatformID {
		r.logger.WarnContext(ctx, "dropping event whose origin platform does not match the integration",
			"integration_platform", integration.PlatformID)
		return nil
	}
	if integration.TenantID != ev.TenantID {
		r.logger.WarnContext(ctx, "dropping event of another tenant")
		return nil
	}

	handler, err := r.handlers.OutboundHandler(j.origin.PlatformID)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping event without outbound handler", "error", err)
		return nil
	}

	if limiter := r.limiter(integration.ID); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.cfg.DispatchTimeout)
	defer cancel()

	if err := handler.Send(sendCtx, integration, platform.OutboundMessage{
		MessageID:            ev.MessageID,
		ThreadID:             ev.ThreadID,
		WorkflowID:           ev.WorkflowID,
		ParticipantID:        ev.ParticipantID,
		ParticipantChannelID: ev.ParticipantChannelID,
		Content:              ev.Content,
		Metadata:             ev.Metadata,
	}); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "outbound message delivered")
	return nil
}

func (r *Router) limiter(integrationID int64) *rate.Limiter {
	if r.cfg.RatePerSecond <= 0 {
		return nil
	}
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	l, ok := r.limiters[integrationID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.RatePerSecond), r.cfg.RateBurst)
		r.limiters[integrationID] = l
	}
	return l
}

// forgetLimiter drops the limiter of an integration that was deleted or
// disabled. A re-enabled integration starts with a full burst.
func (r *Router) forgetLimiter(integrationID int64) {
	r.limitersMu.Lock()
	defer r.limitersMu.Unlock()
	delete(r.limiters, integrationID)
}

func (r *Router) ack(ctx context.Context, d events.Delivery) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.consumer.Ack(ackCtx, d); err != nil {
		r.logger.WarnContext(ctx, "failed to ack message event", "error", err, "stream_id", d.ID)
	}
}

func (r *Router) shutdown(ctx context.Context, cancelDispatch context.CancelFunc) {
	for _, shard := range r.shards {
		close(shard)
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(r.cfg.ShutdownTimeout):
		r.logger.WarnContext(ctx, "shutdown timeout exceeded, cancelling in-flight deliveries")
		cancelDispatch()
		<-done
	}
	r.logger.InfoContext(ctx, "outbound router stopped")
}
