package dispatch

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xdispatch/lib/infra"
	"github.com/benz9527/xdispatch/xlog"
)

// Gateway is the producer facing entry of both dispatchers.
// It is safe for concurrent use, every accepted message gets an ack
// once it is visible to the consumer, never after it was processed.
type Gateway struct {
	ring   *RingDispatcher
	queue  *QueueDispatcher
	logger xlog.XLogger
}

func NewGateway(ring *RingDispatcher, queue *QueueDispatcher, opts ...Option) (*Gateway, error) {
	if ring == nil || queue == nil {
		return nil, infra.NewErrorStack("[dispatch] gateway requires both dispatchers")
	}
	o := newDispatchOptions(opts...)
	return &Gateway{
		ring:   ring,
		queue:  queue,
		logger: o.logger.Named("Gateway"),
	}, nil
}

func (g *Gateway) Ring() *RingDispatcher {
	return g.ring
}

func (g *Gateway) Queue() *QueueDispatcher {
	return g.queue
}

// Publish routes the message. The ack is returned on failure too,
// with the failure prefix of the route, next to the error.
func (g *Gateway) Publish(ctx context.Context, route Route, message string) (string, error) {
	switch route {
	case RouteRing:
		return g.PublishRing(ctx, message)
	case RouteQueue:
		return g.PublishQueue(ctx, message)
	}
	return AckRingFailedPrefix + message, ErrUnknownRoute
}

// PublishRing blocks while the ring is full, ctx bounds the wait.
func (g *Gateway) PublishRing(ctx context.Context, message string) (string, error) {
	seq, err := g.ring.PublishMessage(ctx, message)
	if err != nil {
		g.logger.WarnContext(ctx, "ring publish failed",
			zap.String("message", message),
			zap.Error(err),
		)
		return AckRingFailedPrefix + message, err
	}
	g.logger.DebugContext(ctx, "ring message accepted",
		zap.String("message", message),
		zap.Uint64("sequence", seq),
	)
	return AckRingPrefix + message, nil
}

// PublishQueue never blocks.
func (g *Gateway) PublishQueue(ctx context.Context, message string) (string, error) {
	if err := g.queue.Enqueue(message); err != nil {
		g.logger.WarnContext(ctx, "queue publish failed",
			zap.String("message", message),
			zap.Error(err),
		)
		return AckQueueFailedPrefix + message, err
	}
	g.logger.DebugContext(ctx, "queue message accepted",
		zap.String("message", message),
		zap.Int64("backlog", g.queue.Len()),
	)
	return AckQueuePrefix + message, nil
}

// Ready reports whether both dispatchers accept messages.
func (g *Gateway) Ready() bool {
	return !g.ring.IsStopped() && !g.queue.IsStopped()
}

// Start starts both dispatchers, the ring is stopped again if the queue fails.
func (g *Gateway) Start() error {
	if err := g.ring.Start(); err != nil {
		return err
	}
	if err := g.queue.Start(); err != nil {
		_ = g.ring.Stop()
		return err
	}
	return nil
}

// Shutdown drains and stops both dispatchers.
func (g *Gateway) Shutdown(ctx context.Context) error {
	ringErr := g.ring.Shutdown(ctx)
	queueErr := g.queue.Shutdown(ctx)
	if ringErr != nil || queueErr != nil {
		g.logger.Warn("dispatchers shutdown incomplete",
			zap.NamedError("ring", ringErr),
			zap.NamedError("queue", queueErr),
		)
		return infra.WrapErrorStack(multierr.Combine(ringErr, queueErr))
	}
	g.logger.Info("dispatchers drained and stopped")
	return nil
}
