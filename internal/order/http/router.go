package http

import (
	"log/slog"
	"net/http"

	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/dwikikusuma/cartflow/pkg/middleware"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *OrderHandler, log *slog.Logger, rec *metrics.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(rec), middleware.Logging(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1/orders", middleware.RequireUser())
	{
		v1.POST("", h.PlaceOrder)
		v1.GET("/:id", h.GetOrder)
		v1.POST("/:id/cancel", h.CancelOrder)
	}

	// operator endpoint; callers are trusted by the network boundary
	r.PATCH("/v1/admin/orders/:id/status", h.UpdateStatus)

	return r
}
