package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dwikikusuma/cartflow/internal/catalog/app"
	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *app.Service
}

func NewHandler(svc *app.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/products", h.CreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}/exists", h.ProductExists).Methods(http.MethodGet, http.MethodHead)
}

type createProductReq struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Currency    string          `json:"currency"`
	Price       decimal.Decimal `json:"price"`
}

type moneyResp struct {
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

type productResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       moneyResp `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResp(p domain.Product) productResp {
	return productResp{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       moneyResp{Currency: p.Price.Currency, Amount: p.Price.Amount},
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := apperr.HTTPStatus(err)
	if status >= 500 {
		logger.FromCtx(r.Context(), nil).Error("request failed", slog.Any("err", err))
	}
	writeJSON(w, status, map[string]string{"code": code, "error": msg})
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, r, app.ErrInvalidInput)
		return
	}

	p, err := h.svc.CreateProduct(r.Context(), req.Name, req.Description, req.Currency, req.Price)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResp(p))
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(p))
}

// ProductExists handles GET /products/{id}/exists: 200 when known, 404 when not.
func (h *Handler) ProductExists(w http.ResponseWriter, r *http.Request) {
	ok, err := h.svc.ProductExists(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]bool{"exists": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": true})
}
