package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dwikikusuma/cartflow/internal/order/app"
	"github.com/dwikikusuma/cartflow/internal/order/domain"
	"github.com/dwikikusuma/cartflow/internal/order/infra/memory"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *countingNotifier) NotifyCancellation(ctx context.Context, orderID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.ids = append(n.ids, orderID)
	return nil
}

func setup(t *testing.T, n app.CancellationNotifier) (*gin.Engine, *memory.OrderStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewOrderStore()
	opts := []app.Option{app.WithLogger(logger.Discard()), app.WithIDGenerator(func() string { return "o-1" })}
	h := NewOrderHandler(app.NewService(store, opts...), app.NewCoordinator(store, n, opts...))
	return NewRouter(h, logger.Discard(), nil), store
}

func send(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(middleware.UserIDHeader, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const placeBody = `{"currency":"IDR","shipping_amount":"2","items":[{"product_id":"A","name":"Apple","unit_amount":"1.50","quantity":2}]}`

type cancelResp struct {
	Order           orderResp `json:"order"`
	AlreadyCanceled bool      `json:"already_canceled"`
	Notified        bool      `json:"notified"`
}

func TestPlaceAndCancel(t *testing.T) {
	n := &countingNotifier{}
	r, _ := setup(t, n)

	w := send(r, http.MethodPost, "/v1/orders", "u1", placeBody)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"total_amount":"5"`)

	w = send(r, http.MethodGet, "/v1/orders/o-1", "u2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodPost, "/v1/orders/o-1/cancel", "u2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = send(r, http.MethodPost, "/v1/orders/o-1/cancel", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var first cancelResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.True(t, first.Notified)
	require.Equal(t, domain.StatusCanceled, first.Order.Status)

	w = send(r, http.MethodPost, "/v1/orders/o-1/cancel", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var second cancelResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.True(t, second.AlreadyCanceled)
	require.False(t, second.Notified)

	require.Equal(t, []string{"o-1"}, n.ids)
}

func TestCancel_PublishFailureStillCancels(t *testing.T) {
	n := &countingNotifier{err: errors.New("broker down")}
	r, store := setup(t, n)
	require.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/v1/orders", "u1", placeBody).Code)

	w := send(r, http.MethodPost, "/v1/orders/o-1/cancel", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"notified":false`)

	o, err := store.FindByID(context.Background(), "o-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCanceled, o.Status)
}

func TestUpdateStatus(t *testing.T) {
	r, _ := setup(t, &countingNotifier{})
	require.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/v1/orders", "u1", placeBody).Code)

	w := send(r, http.MethodPatch, "/v1/admin/orders/o-1/status", "", `{"status":"PAID"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodPatch, "/v1/admin/orders/o-1/status", "", `{"status":"PLACED"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPatch, "/v1/admin/orders/o-1/status", "", `{"status":"CANCELED"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodPatch, "/v1/admin/orders/o-1/status", "", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPlaceOrder_Invalid(t *testing.T) {
	r, _ := setup(t, &countingNotifier{})

	w := send(r, http.MethodPost, "/v1/orders", "", placeBody)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodPost, "/v1/orders", "u1", `{"currency":"IDR","items":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/v1/orders", "u1", `{"currency":"IDR","items":[{"product_id":"A","unit_amount":"1","quantity":0}]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancel_QueuedNotification(t *testing.T) {
	n := &countingNotifier{err: app.ErrNotificationQueued}
	r, _ := setup(t, n)
	require.Equal(t, http.StatusCreated, send(r, http.MethodPost, "/v1/orders", "u1", placeBody).Code)

	w := send(r, http.MethodPost, "/v1/orders/o-1/cancel", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"notified":false`)
	require.Contains(t, w.Body.String(), `"queued":true`)
}
