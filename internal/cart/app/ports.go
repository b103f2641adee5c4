package app

import (
	"context"

	"github.com/dwikikusuma/cartflow/internal/cart/domain"
)

// CartRepo is the persistence boundary for carts.
type CartRepo interface {
	// FindByID returns ErrCartNotFound when no cart has the id.
	FindByID(ctx context.Context, id string) (domain.Cart, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	// Save inserts a cart with Version 0 and otherwise updates it if the stored
	// version still matches, returning ErrStaleCart when it does not. The
	// returned cart carries the new version.
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	DeleteByID(ctx context.Context, id string) error
}

// CartStore runs fn as one unit of work: committed if fn returns nil, rolled
// back otherwise.
type CartStore interface {
	CartRepo
	ExecTx(ctx context.Context, fn func(repo CartRepo) error) error
}

type Existence int

const (
	ProductUnavailable Existence = iota
	ProductExists
	ProductNotFound
)

func (e Existence) String() string {
	switch e {
	case ProductExists:
		return "exists"
	case ProductNotFound:
		return "not_found"
	default:
		return "unavailable"
	}
}

// ProductChecker asks the product catalog whether a product id is known. It
// never fails; transport problems are reported as ProductUnavailable.
type ProductChecker interface {
	Exists(ctx context.Context, productID string) Existence
}
