package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dwikikusuma/cartflow/internal/order/app"
	"github.com/dwikikusuma/cartflow/internal/order/domain"
	"github.com/dwikikusuma/cartflow/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const requestTimeout = 5 * time.Second

type OrderHandler struct {
	orders *app.Service
	coord  *app.Coordinator
}

func NewOrderHandler(orders *app.Service, coord *app.Coordinator) *OrderHandler {
	return &OrderHandler{orders: orders, coord: coord}
}

type itemReq struct {
	ProductID  string          `json:"product_id" binding:"required"`
	Name       string          `json:"name"`
	UnitAmount decimal.Decimal `json:"unit_amount"`
	Quantity   int32           `json:"quantity"`
}

type placeOrderReq struct {
	Currency       string          `json:"currency" binding:"required"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	Items          []itemReq       `json:"items" binding:"required,min=1,dive"`
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

type itemResp struct {
	ProductID       string          `json:"product_id"`
	Name            string          `json:"name"`
	UnitAmount      decimal.Decimal `json:"unit_amount"`
	Quantity        int32           `json:"quantity"`
	LineTotalAmount decimal.Decimal `json:"line_total_amount"`
}

type orderResp struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	Status         domain.Status   `json:"status"`
	Currency       string          `json:"currency"`
	SubTotalAmount decimal.Decimal `json:"subtotal_amount"`
	ShippingAmount decimal.Decimal `json:"shipping_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Items          []itemResp      `json:"items"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toOrder(o domain.Order) orderResp {
	items := make([]itemResp, 0, len(o.OrderItems))
	for _, it := range o.OrderItems {
		items = append(items, itemResp{
			ProductID:       it.ProductID,
			Name:            it.Name,
			UnitAmount:      it.UnitAmount,
			Quantity:        it.Quantity,
			LineTotalAmount: it.LineTotalAmount,
		})
	}
	return orderResp{
		ID:             o.ID,
		UserID:         o.UserID,
		Status:         o.Status,
		Currency:       o.Currency,
		SubTotalAmount: o.SubTotalAmount,
		ShippingAmount: o.ShippingAmount,
		TotalAmount:    o.TotalAmount,
		Items:          items,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	items := make([]domain.OrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.OrderItemRequest{
			ProductID:  it.ProductID,
			Name:       it.Name,
			UnitAmount: it.UnitAmount,
			Quantity:   it.Quantity,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	out, err := h.orders.PlaceOrder(ctx, domain.CreateOrderRequest{
		UserID:         middleware.UserID(c),
		Currency:       req.Currency,
		ShippingAmount: req.ShippingAmount,
		Items:          items,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	o, err := h.orders.GetOrder(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(o))
}

// CancelOrder answers 200 even when the notification could not be sent; the
// order is canceled either way and "notified"/"queued" tell the cases apart.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	out, err := h.coord.CancelOrder(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":            toOrder(out.Order),
		"already_canceled": out.AlreadyCanceled,
		"notified":         out.Notified,
		"queued":           out.Queued,
	})
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	o, err := h.coord.UpdateStatus(ctx, c.Param("id"), "", req.Status)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(o))
}
