package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newEngine(rec *metrics.Recorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(rec), Logging(logger.Discard()))
	r.GET("/me", RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	r.GET("/boom", func(c *gin.Context) {
		Fail(c, apperr.New(apperr.ErrNotFound, "cart not found"))
	})
	return r
}

func TestRequireUser(t *testing.T) {
	r := newEngine(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(UserIDHeader, " u1 ")
	req.Header.Set(RequestIDHeader, "req-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "u1", w.Body.String())
	require.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
}

func TestFailAndMetrics(t *testing.T) {
	rec := metrics.New("test", prometheus.NewRegistry())
	r := newEngine(rec)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"code":"NOT_FOUND","error":"cart not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(rec.Requests.WithLabelValues("GET", "/boom", "404")))
	require.Equal(t, 1.0, testutil.ToFloat64(rec.Requests.WithLabelValues("GET", "unmatched", "404")))
}
