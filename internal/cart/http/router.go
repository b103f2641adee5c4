package http

import (
	"log/slog"
	"net/http"

	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/dwikikusuma/cartflow/pkg/middleware"
	"github.com/gin-gonic/gin"
)

func NewRouter(h *CartHandler, log *slog.Logger, rec *metrics.Recorder) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(rec), middleware.Logging(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1/carts")
	{
		v1.POST("/anonymous", h.CreateAnonCart)
		v1.GET("/anonymous/:id", h.GetAnonCart)

		user := v1.Group("", middleware.RequireUser())
		user.POST("", h.CreateCart)
		user.GET("/me", h.GetMyCart)
		user.PATCH("/me/products", h.ChangeProductUnit)
		user.POST("/me/selection", h.SelectProducts)
		user.POST("/me/checkout", h.Checkout)
		user.POST("/merge/:anonCartId", h.MergeCart)
	}

	return r
}
