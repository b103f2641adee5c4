package app

import (
	"context"
	"strings"

	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput = apperr.New(apperr.ErrValidation, "invalid input")
	ErrNotFound     = apperr.New(apperr.ErrNotFound, "product not found")
)

type Service struct {
	repo ProductRepo
}

func NewService(repo ProductRepo) *Service {
	return &Service{
		repo: repo,
	}
}

func (s *Service) CreateProduct(ctx context.Context, name, desc, currency string, amount decimal.Decimal) (domain.Product, error) {
	name = strings.TrimSpace(name)
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if name == "" || currency == "" || !amount.IsPositive() {
		return domain.Product{}, ErrInvalidInput
	}

	p := domain.Product{
		Name:        name,
		Description: desc,
		Price: domain.Money{
			Currency: currency,
			Amount:   amount,
		},
	}

	return s.repo.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, ErrInvalidInput
	}
	return s.repo.Get(ctx, id)
}

// ProductExists backs the existence endpoint the cart service calls before
// touching a cart. A blank id is simply unknown.
func (s *Service) ProductExists(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}
