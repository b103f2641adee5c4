package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dwikikusuma/cartflow/internal/catalog/app"
	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	products map[string]domain.Product
}

func (m *memRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = "p-" + p.Name
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, app.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.products[id]
	return ok, nil
}

func newRouter() http.Handler {
	svc := app.NewService(&memRepo{products: map[string]domain.Product{}})
	return NewRouter(NewHandler(svc), logger.Discard(), nil)
}

func call(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestProductEndpoints(t *testing.T) {
	h := newRouter()

	w := call(h, http.MethodGet, "/products/p-Keyboard/exists", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = call(h, http.MethodPost, "/products", `{"name":"Keyboard","currency":"idr","price":"12.50"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"currency":"IDR"`)

	w = call(h, http.MethodGet, "/products/p-Keyboard/exists", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"exists":true}`, w.Body.String())

	w = call(h, http.MethodGet, "/products/p-Keyboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = call(h, http.MethodGet, "/products/p-Mouse", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestCreateProduct_Invalid(t *testing.T) {
	h := newRouter()

	w := call(h, http.MethodPost, "/products", `{`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = call(h, http.MethodPost, "/products", `{"name":"Keyboard","currency":"IDR","price":"0"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthz(t *testing.T) {
	w := call(newRouter(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
}
