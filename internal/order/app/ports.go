package app

import (
	"context"
	"errors"

	"github.com/dwikikusuma/cartflow/internal/order/domain"
)

type OrderRepo interface {
	// FindByID returns ErrOrderNotFound when no order has the id.
	FindByID(ctx context.Context, id string) (domain.Order, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	// Save inserts an order with Version 0 together with its items, and
	// otherwise updates its status if the stored version still matches,
	// returning ErrStaleOrder when it does not.
	Save(ctx context.Context, order domain.Order) (domain.Order, error)
	DeleteByID(ctx context.Context, id string) error
}

type OrderStore interface {
	OrderRepo
	ExecTx(ctx context.Context, fn func(repo OrderRepo) error) error
}

// CancellationNotifier tells downstream services that an order was canceled.
// The payload is the order id.
type CancellationNotifier interface {
	NotifyCancellation(ctx context.Context, orderID string) error
}

// ErrNotificationQueued is returned by a notifier that could not publish but
// stored the notification for a later retry.
var ErrNotificationQueued = errors.New("cancellation notification queued")
