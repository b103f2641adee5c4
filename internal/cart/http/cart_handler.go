package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dwikikusuma/cartflow/internal/cart/app"
	"github.com/dwikikusuma/cartflow/internal/cart/domain"
	"github.com/dwikikusuma/cartflow/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const requestTimeout = 5 * time.Second

type CartHandler struct {
	svc *app.Service
}

func NewCartHandler(svc *app.Service) *CartHandler {
	return &CartHandler{svc: svc}
}

type lineReq struct {
	ProductID string          `json:"product_id" binding:"required"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Units     int             `json:"units"`
}

func (r lineReq) input() app.LineInput {
	return app.LineInput{ProductID: r.ProductID, Name: r.Name, UnitPrice: r.UnitPrice, Units: r.Units}
}

type selectionReq struct {
	ProductIDs []string `json:"product_ids" binding:"required,min=1"`
}

type lineResp struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResp struct {
	ID        string          `json:"id"`
	Anonymous bool            `json:"anonymous"`
	Version   int64           `json:"version"`
	Lines     []lineResp      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toLines(lines []domain.ProductLine) []lineResp {
	out := make([]lineResp, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineResp{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal(),
		})
	}
	return out
}

func toCart(c domain.Cart) cartResp {
	return cartResp{
		ID:        c.ID,
		Anonymous: c.IsAnon(),
		Version:   c.Version,
		Lines:     toLines(c.Lines()),
		Total:     c.Total(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (h *CartHandler) CreateCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.CreateCart(ctx, middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCart(cart))
}

func (h *CartHandler) CreateAnonCart(c *gin.Context) {
	var req lineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.CreateAnonCart(ctx, req.input())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCart(cart))
}

func (h *CartHandler) GetMyCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.GetUserCart(ctx, middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(cart))
}

// GetAnonCart only serves anonymous carts; user carts need the identity header.
func (h *CartHandler) GetAnonCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.GetCart(ctx, c.Param("id"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	if !cart.IsAnon() {
		middleware.Fail(c, app.ErrCartNotFound)
		return
	}
	c.JSON(http.StatusOK, toCart(cart))
}

func (h *CartHandler) MergeCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.MergeCart(ctx, middleware.UserID(c), c.Param("anonCartId"))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(cart))
}

func (h *CartHandler) ChangeProductUnit(c *gin.Context) {
	var req lineReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.ChangeProductUnit(ctx, middleware.UserID(c), req.input())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCart(cart))
}

// SelectProducts previews a selection without touching the cart.
func (h *CartHandler) SelectProducts(c *gin.Context) {
	var req selectionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	cart, err := h.svc.GetUserCart(ctx, middleware.UserID(c))
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	lines, err := h.svc.SelectProductsFromCart(cart, req.ProductIDs)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": toLines(lines)})
}

// Checkout drains the selected lines from the cart and returns them.
func (h *CartHandler) Checkout(c *gin.Context) {
	var req selectionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, app.ErrInvalidInput)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	lines, err := h.svc.ConsumeSelection(ctx, middleware.UserID(c), req.ProductIDs)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lines": toLines(lines)})
}
