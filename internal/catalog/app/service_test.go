package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	created []domain.Product
	known   map[string]bool
	err     error
}

func (f *fakeRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = "p-1"
	f.created = append(f.created, p)
	return p, nil
}

func (f *fakeRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	if !f.known[id] {
		return domain.Product{}, ErrNotFound
	}
	return domain.Product{ID: id}, nil
}

func (f *fakeRepo) Exists(ctx context.Context, id string) (bool, error) {
	return f.known[id], f.err
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(&fakeRepo{})
	price := decimal.RequireFromString("100")

	t.Run("empty name -> invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "   ", "x", "IDR", price)
		if err != ErrInvalidInput {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("negative amount -> invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "Keyboard", "x", "IDR", decimal.NewFromInt(-1))
		if err != ErrInvalidInput {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("empty currency -> invalid", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "Keyboard", "x", "   ", price)
		if err != ErrInvalidInput {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("validation errors carry the kind", func(t *testing.T) {
		_, err := svc.CreateProduct(context.Background(), "", "", "", price)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("expected validation kind, got %v", err)
		}
	})
}

func TestCreateProductNormalizes(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	p, err := svc.CreateProduct(context.Background(), " Keyboard ", "mech", " idr", decimal.RequireFromString("12.50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Keyboard" || p.Price.Currency != "IDR" {
		t.Fatalf("unexpected product %+v", p)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.created))
	}
}

func TestProductExists(t *testing.T) {
	repo := &fakeRepo{known: map[string]bool{"p-1": true}}
	svc := NewService(repo)

	ok, err := svc.ProductExists(context.Background(), "p-1")
	if err != nil || !ok {
		t.Fatalf("expected p-1 to exist, got %v %v", ok, err)
	}

	ok, err = svc.ProductExists(context.Background(), "  ")
	if err != nil || ok {
		t.Fatalf("blank id should be unknown, got %v %v", ok, err)
	}

	repo.err = errors.New("db down")
	if _, err := svc.ProductExists(context.Background(), "p-1"); err == nil {
		t.Fatalf("expected repo error to surface")
	}
}
