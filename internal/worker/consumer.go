// Package worker runs the notification consumers: each consumer blocks on the
// queue signal list, drains the data list, resolves recipients and media for
// every drained notification, and hands the materialized messages to the
// delivery router.
package worker

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"alertpipe/internal/dispatch"
	"alertpipe/internal/notify"
	"alertpipe/internal/queue"
	"alertpipe/internal/records"
	"alertpipe/internal/types"
)

// deliveryConcurrency bounds the per-notification delivery fan-out.
const deliveryConcurrency = 8

// Marker records that a contact has been notified so interval suppression can
// start its timer. Satisfied by dispatch.IntervalPolicy.
type Marker interface {
	MarkNotified(ctx context.Context, contactID, checkID string, medium types.MediumType) error
}

// Consumer is one queue consumer. Multiple consumers may run against the same
// queue; the signal list hands each pushed notification to exactly one of
// them.
type Consumer struct {
	queueName    string
	transport    *queue.Transport
	store        records.Store
	materializer *dispatch.Materializer
	router       Deliverer
	marker       Marker // nil disables interval marking
	opts         dispatch.Options
	logger       types.Logger
}

// Deliverer sends one materialized message. Satisfied by delivery.Router.
type Deliverer interface {
	Deliver(ctx context.Context, msg types.Message) error
}

// NewConsumer assembles a Consumer. marker may be nil when no interval
// suppression is configured.
func NewConsumer(
	queueName string,
	transport *queue.Transport,
	store records.Store,
	materializer *dispatch.Materializer,
	router Deliverer,
	marker Marker,
	opts dispatch.Options,
	logger types.Logger,
) *Consumer {
	return &Consumer{
		queueName:    queueName,
		transport:    transport,
		store:        store,
		materializer: materializer,
		router:       router,
		marker:       marker,
		opts:         opts,
		logger:       logger,
	}
}

// Run blocks on the queue until the context is cancelled. Each wakeup drains
// the whole data list before blocking again. Queue transport failures are
// fatal and returned; per-notification failures are logged and the loop
// continues, so one bad notification never stalls the queue.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started", "queue", c.queueName)
	for {
		if err := c.transport.WaitForSignal(ctx, c.queueName); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer stopping", "queue", c.queueName)
				return nil
			}
			return err
		}

		if err := c.drain(ctx); err != nil {
			return err
		}
	}
}

// drain empties the data list, processing each notification in arrival order.
func (c *Consumer) drain(ctx context.Context) error {
	for n, err := range c.transport.Drain(ctx, c.queueName) {
		if err != nil {
			return err
		}
		c.process(ctx, n)
	}
	return nil
}

// process resolves and delivers one notification. Failures are absorbed here:
// a record store outage or delivery failure is logged, not propagated, so the
// consumer keeps serving the queue.
func (c *Consumer) process(ctx context.Context, n *notify.Notification) {
	logger := c.logger.With(
		"check_id", n.CheckID,
		"severity", string(n.Severity),
		"type", string(n.Type),
	)

	contacts, err := c.store.ContactsForCheck(ctx, n.CheckID)
	if err != nil {
		logger.Error("failed to load contacts, dropping notification", "error", err.Error())
		return
	}
	if len(contacts) == 0 {
		logger.Debug("no contacts subscribed to check")
		return
	}

	messages, err := c.materializer.Messages(ctx, n, contacts, c.opts)
	if err != nil {
		logger.Error("failed to materialize messages, dropping notification", "error", err.Error())
		return
	}
	if len(messages) == 0 {
		logger.Debug("all recipients suppressed or unrouted")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deliveryConcurrency)
	for _, msg := range messages {
		g.Go(func() error {
			if err := c.router.Deliver(gctx, msg); err != nil {
				logger.Error("delivery failed",
					"message_id", msg.ID,
					"contact_id", msg.ContactID,
					"medium", string(msg.MediumType),
					"error", err.Error(),
				)
				return nil
			}
			if c.marker != nil {
				if err := c.marker.MarkNotified(gctx, msg.ContactID, n.CheckID, msg.MediumType); err != nil {
					logger.Warn("failed to record notified marker",
						"contact_id", msg.ContactID,
						"medium", string(msg.MediumType),
						"error", err.Error(),
					)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("notification dispatched",
		"contacts", len(contacts),
		"messages", len(messages),
	)
}

// Pool runs n identical consumers concurrently and stops them together: the
// first fatal consumer error cancels the rest.
func Pool(ctx context.Context, n int, build func(i int) *Consumer) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		consumer := build(i)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}
	return g.Wait()
}
