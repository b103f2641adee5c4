package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dwikikusuma/cartflow/internal/cart/app"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		switch r.URL.Path {
		case "/products/P1/exists":
			w.WriteHeader(http.StatusOK)
		case "/products/P2/exists":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	rec := metrics.New("cart", prometheus.NewRegistry())
	gw := NewProductGateway(srv.URL+"/", time.Second, logger.Discard(), rec)
	ctx := context.Background()

	require.Equal(t, app.ProductExists, gw.Exists(ctx, "P1"))
	require.Equal(t, "/products/P1/exists", gotPath)
	require.Equal(t, app.ProductNotFound, gw.Exists(ctx, "P2"))
	require.Equal(t, app.ProductUnavailable, gw.Exists(ctx, "P3"))

	require.Equal(t, 1.0, testutil.ToFloat64(rec.ProductChecks.WithLabelValues("exists")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.ProductChecks.WithLabelValues("not_found")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.ProductChecks.WithLabelValues("unavailable")))
}

func TestExists_EscapesProductID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	gw := NewProductGateway(srv.URL, time.Second, logger.Discard(), nil)
	require.Equal(t, app.ProductExists, gw.Exists(context.Background(), "a/b c"))
	require.Equal(t, "/products/a%2Fb%20c/exists", gotPath)
}

func TestExists_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	gw := NewProductGateway(srv.URL, 50*time.Millisecond, logger.Discard(), nil)
	require.Equal(t, app.ProductUnavailable, gw.Exists(context.Background(), "P1"))
}

func TestExists_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	gw := NewProductGateway(url, time.Second, logger.Discard(), nil)
	require.Equal(t, app.ProductUnavailable, gw.Exists(context.Background(), "P1"))
}

func TestExists_BadBaseURLIsUnavailable(t *testing.T) {
	gw := NewProductGateway("http://[::1", time.Second, logger.Discard(), nil)
	require.Equal(t, app.ProductUnavailable, gw.Exists(context.Background(), "P1"))
}
