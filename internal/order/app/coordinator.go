package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dwikikusuma/cartflow/internal/order/domain"
	"github.com/dwikikusuma/cartflow/pkg/lock"
	"github.com/dwikikusuma/cartflow/pkg/logger"
)

// CancelOutcome describes a successful CancelOrder call. Notified is false
// when the order was already canceled or when publishing failed; in the
// latter case the order stays canceled. Queued reports that the notification
// was stored for a later retry instead of being published.
type CancelOutcome struct {
	Order           domain.Order
	AlreadyCanceled bool
	Notified        bool
	Queued          bool
}

// Coordinator owns order status changes and the cancellation notification
// that follows them.
type Coordinator struct {
	store    OrderStore
	notifier CancellationNotifier
	opts     options
}

func NewCoordinator(store OrderStore, notifier CancellationNotifier, opts ...Option) *Coordinator {
	return &Coordinator{store: store, notifier: notifier, opts: buildOptions(opts)}
}

// CancelOrder persists CANCELED and then publishes the order id. A second
// call on the same order succeeds without publishing again. An empty userID
// skips the ownership check.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID, userID string) (CancelOutcome, error) {
	var (
		out     CancelOutcome
		changed bool
	)
	err := c.mutate(ctx, "cancel_order", orderID, func(repo OrderRepo) error {
		order, err := loadOwned(ctx, repo, orderID, userID)
		if err != nil {
			return err
		}
		changed = order.Cancel()
		if !changed {
			out = CancelOutcome{Order: order, AlreadyCanceled: true}
			return nil
		}
		saved, err := repo.Save(ctx, order)
		if err != nil {
			return err
		}
		out = CancelOutcome{Order: saved}
		return nil
	})
	if err != nil {
		return CancelOutcome{}, err
	}
	if !changed {
		return out, nil
	}

	log := logger.FromCtx(ctx, c.opts.log)
	err = c.notifier.NotifyCancellation(ctx, orderID)
	if errors.Is(err, ErrNotificationQueued) {
		out.Queued = true
		log.Warn("order canceled, notification queued", slog.String("order_id", orderID))
		return out, nil
	}
	if err != nil {
		c.opts.metrics.Notification("failed")
		log.Error("cancellation notification failed, order stays canceled",
			slog.String("order_id", orderID),
			slog.Any("err", err),
		)
		return out, nil
	}

	c.opts.metrics.Notification("sent")
	out.Notified = true
	log.Info("order canceled", slog.String("order_id", orderID))
	return out, nil
}

// UpdateStatus moves an order forward. A CANCELED target is a cancellation
// and publishes like CancelOrder does.
func (c *Coordinator) UpdateStatus(ctx context.Context, orderID, userID, status string) (domain.Order, error) {
	next, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Order{}, err
	}
	if next == domain.StatusCanceled {
		out, err := c.CancelOrder(ctx, orderID, userID)
		return out.Order, err
	}

	var updated domain.Order
	err = c.mutate(ctx, "update_status", orderID, func(repo OrderRepo) error {
		order, err := loadOwned(ctx, repo, orderID, userID)
		if err != nil {
			return err
		}
		if order.Status == next {
			updated = order
			return nil
		}
		if err := order.TransitionTo(next); err != nil {
			return err
		}
		updated, err = repo.Save(ctx, order)
		return err
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

func (c *Coordinator) mutate(ctx context.Context, op, orderID string, fn func(repo OrderRepo) error) error {
	unlock, err := lock.LockAll(ctx, c.opts.locker, "order:"+orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		err = c.store.ExecTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrStaleOrder) || attempt >= c.opts.maxAttempts {
			return err
		}
		c.opts.metrics.TxRetry(op)
		logger.FromCtx(ctx, c.opts.log).Warn("stale order write, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
		)
	}
}
