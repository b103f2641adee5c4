package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dwikikusuma/cartflow/internal/order/app"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
)

// FallbackNotifier publishes through primary and parks the notification in
// the queue when that fails, returning app.ErrNotificationQueued. Any other
// error means both failed.
type FallbackNotifier struct {
	primary app.CancellationNotifier
	queue   Queue
	log     *slog.Logger
	metrics *metrics.Recorder
}

func NewFallbackNotifier(primary app.CancellationNotifier, queue Queue, log *slog.Logger, rec *metrics.Recorder) *FallbackNotifier {
	return &FallbackNotifier{primary: primary, queue: queue, log: log, metrics: rec}
}

func (n *FallbackNotifier) NotifyCancellation(ctx context.Context, orderID string) error {
	err := n.primary.NotifyCancellation(ctx, orderID)
	if err == nil {
		return nil
	}
	if qErr := n.queue.Enqueue(ctx, orderID); qErr != nil {
		return errors.Join(err, qErr)
	}
	n.metrics.Notification("queued")
	n.log.Warn("cancellation parked in outbox",
		slog.String("order_id", orderID),
		slog.Any("err", err),
	)
	return app.ErrNotificationQueued
}

// Relay drains the queue through notifier at a fixed interval.
type Relay struct {
	queue     Queue
	notifier  app.CancellationNotifier
	interval  time.Duration
	batchSize int
	log       *slog.Logger
	metrics   *metrics.Recorder
}

func NewRelay(queue Queue, notifier app.CancellationNotifier, interval time.Duration, batchSize int, log *slog.Logger, rec *metrics.Recorder) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{queue: queue, notifier: notifier, interval: interval, batchSize: batchSize, log: log, metrics: rec}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("outbox relay started", slog.Duration("interval", r.interval))
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return nil
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("outbox relay pass failed", slog.Any("err", err))
			}
		}
	}
}

// RunOnce publishes one batch and returns how many records were sent. A
// record that fails stays pending with its attempt count bumped.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	pending, err := r.queue.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range pending {
		if err := r.notifier.NotifyCancellation(ctx, rec.OrderID); err != nil {
			r.metrics.Notification("relay_failed")
			if mErr := r.queue.MarkFailed(ctx, rec.ID, err.Error()); mErr != nil {
				return sent, mErr
			}
			continue
		}
		if err := r.queue.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		r.metrics.Notification("relayed")
		sent++
	}
	return sent, nil
}
