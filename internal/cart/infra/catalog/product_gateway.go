// Package catalog asks the product service whether products exist.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dwikikusuma/cartflow/internal/cart/app"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
)

type ProductGateway struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
	metrics *metrics.Recorder
}

func NewProductGateway(baseURL string, timeout time.Duration, log *slog.Logger, rec *metrics.Recorder) *ProductGateway {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProductGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log,
		metrics: rec,
	}
}

// Exists calls GET {base}/products/{id}/exists. 2xx means the product exists
// and 404 that it does not; everything else is unavailable.
func (g *ProductGateway) Exists(ctx context.Context, productID string) app.Existence {
	result, cause := g.check(ctx, productID)
	g.metrics.ProductCheck(result.String())
	if cause != nil {
		logger.FromCtx(ctx, g.log).Warn("product check unavailable",
			slog.String("product_id", productID),
			slog.String("err", cause.Error()),
		)
	}
	return result
}

func (g *ProductGateway) check(ctx context.Context, productID string) (app.Existence, error) {
	endpoint := fmt.Sprintf("%s/products/%s/exists", g.baseURL, url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return app.ProductUnavailable, fmt.Errorf("build request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return app.ProductUnavailable, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return app.ProductExists, nil
	case resp.StatusCode == http.StatusNotFound:
		return app.ProductNotFound, nil
	default:
		return app.ProductUnavailable, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
