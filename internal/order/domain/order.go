package domain

import (
	"strings"
	"time"

	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderCanceled     = apperr.New(apperr.ErrConflict, "order is canceled")
	ErrInvalidStatus     = apperr.New(apperr.ErrValidation, "unknown order status")
	ErrInvalidTransition = apperr.New(apperr.ErrValidation, "order status cannot move backwards")
)

type Status string

const (
	StatusPlaced   Status = "PLACED"
	StatusPaid     Status = "PAID"
	StatusShipped  Status = "SHIPPED"
	StatusCanceled Status = "CANCELED"
)

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPlaced, StatusPaid, StatusShipped, StatusCanceled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) rank() int {
	switch s {
	case StatusPlaced:
		return 1
	case StatusPaid:
		return 2
	case StatusShipped:
		return 3
	}
	return 0
}

type Order struct {
	ID             string
	UserID         string
	Status         Status
	Currency       string
	SubTotalAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	OrderItems     []OrderItem
	// Version is the persisted revision, 0 for an order never saved.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o Order) IsCanceled() bool { return o.Status == StatusCanceled }

// Cancel moves the order to CANCELED and reports whether anything changed.
func (o *Order) Cancel() bool {
	if o.IsCanceled() {
		return false
	}
	o.Status = StatusCanceled
	return true
}

// TransitionTo moves the order forward. CANCELED is terminal, and a move to
// CANCELED goes through Cancel instead.
func (o *Order) TransitionTo(next Status) error {
	if o.IsCanceled() {
		return ErrOrderCanceled
	}
	if next.rank() == 0 || next.rank() < o.Status.rank() {
		return ErrInvalidTransition
	}
	o.Status = next
	return nil
}

type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	Name            string
	UnitAmount      decimal.Decimal
	Quantity        int32
	LineTotalAmount decimal.Decimal
}

type CreateOrderRequest struct {
	UserID         string
	Currency       string
	ShippingAmount decimal.Decimal
	Items          []OrderItemRequest
}

type OrderItemRequest struct {
	ProductID  string
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int32
}

type OrderResponse struct {
	ID          string          `json:"id"`
	Status      Status          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}
