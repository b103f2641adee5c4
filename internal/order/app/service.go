package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwikikusuma/cartflow/internal/order/domain"
	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/shopspring/decimal"
)

type Service struct {
	store OrderStore
	opts  options
}

func NewService(store OrderStore, opts ...Option) *Service {
	return &Service{store: store, opts: buildOptions(opts)}
}

func invalid(format string, args ...any) error {
	return apperr.New(apperr.ErrValidation, fmt.Sprintf(format, args...))
}

// PlaceOrder prices the requested items and stores the order as PLACED.
func (s *Service) PlaceOrder(ctx context.Context, req domain.CreateOrderRequest) (domain.OrderResponse, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Currency) == "" {
		return domain.OrderResponse{}, ErrInvalidInput
	}
	if len(req.Items) == 0 {
		return domain.OrderResponse{}, invalid("order has no items")
	}
	if req.ShippingAmount.IsNegative() {
		return domain.OrderResponse{}, invalid("shipping amount cannot be negative, got %s", req.ShippingAmount)
	}

	orderItems := make([]domain.OrderItem, 0, len(req.Items))
	subTotalAmount := decimal.Zero

	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.OrderResponse{}, invalid("item %d: product id is required", i)
		}
		if item.Quantity <= 0 {
			return domain.OrderResponse{}, invalid("item %d: quantity must be positive, got %d", i, item.Quantity)
		}
		if item.UnitAmount.IsNegative() {
			return domain.OrderResponse{}, invalid("item %d: unit amount cannot be negative, got %s", i, item.UnitAmount)
		}

		lineTotal := item.UnitAmount.Mul(decimal.NewFromInt32(item.Quantity))
		orderItems = append(orderItems, domain.OrderItem{
			ProductID:       item.ProductID,
			Name:            item.Name,
			UnitAmount:      item.UnitAmount,
			Quantity:        item.Quantity,
			LineTotalAmount: lineTotal,
		})

		subTotalAmount = subTotalAmount.Add(lineTotal)
	}

	order := domain.Order{
		ID:             s.opts.newID(),
		UserID:         req.UserID,
		Status:         domain.StatusPlaced,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		ShippingAmount: req.ShippingAmount,
		SubTotalAmount: subTotalAmount,
		TotalAmount:    subTotalAmount.Add(req.ShippingAmount),
		OrderItems:     orderItems,
	}

	var created domain.Order
	err := s.store.ExecTx(ctx, func(repo OrderRepo) error {
		var err error
		created, err = repo.Save(ctx, order)
		return err
	})
	if err != nil {
		return domain.OrderResponse{}, err
	}

	logger.FromCtx(ctx, s.opts.log).Info("order placed",
		slog.String("order_id", created.ID),
		slog.String("user_id", created.UserID),
		slog.String("total", created.TotalAmount.String()),
	)

	return domain.OrderResponse{
		ID:          created.ID,
		Status:      created.Status,
		TotalAmount: created.TotalAmount,
		CreatedAt:   created.CreatedAt,
	}, nil
}

// GetOrder returns the order if it belongs to userID. Someone else's order is
// reported as not found.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (domain.Order, error) {
	return loadOwned(ctx, s.store, orderID, userID)
}

// loadOwned treats an empty userID as an operator call that may see any order.
func loadOwned(ctx context.Context, repo OrderRepo, orderID, userID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, ErrOrderNotFound
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if userID != "" && order.UserID != userID {
		return domain.Order{}, ErrOrderNotFound
	}
	return order, nil
}
