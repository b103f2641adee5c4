package app

import (
	"context"

	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
)

type ProductRepo interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	// Get returns ErrNotFound for unknown or malformed ids.
	Get(ctx context.Context, id string) (domain.Product, error)
	Exists(ctx context.Context, id string) (bool, error)
}
