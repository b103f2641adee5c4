package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dwikikusuma/cartflow/internal/catalog/app"
	"github.com/dwikikusuma/cartflow/internal/catalog/domain"
	"github.com/google/uuid"
)

const (
	insertProduct = `INSERT INTO products (name, description, price_amount, currency)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, updated_at`

	selectProduct = `SELECT id, name, description, price_amount, currency, created_at, updated_at FROM products WHERE id = $1`

	productExists = `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`
)

type ProductRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	err := r.db.QueryRowContext(ctx, insertProduct, p.Name, p.Description, p.Price.Amount.String(), p.Price.Currency).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) Get(ctx context.Context, id string) (domain.Product, error) {
	prodID, err := uuid.Parse(id)
	if err != nil {
		return domain.Product{}, app.ErrNotFound
	}

	var p domain.Product
	err = r.db.QueryRowContext(ctx, selectProduct, prodID.String()).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price.Amount, &p.Price.Currency, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, app.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *ProductRepo) Exists(ctx context.Context, id string) (bool, error) {
	prodID, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}

	var ok bool
	if err := r.db.QueryRowContext(ctx, productExists, prodID.String()).Scan(&ok); err != nil {
		return false, fmt.Errorf("product exists: %w", err)
	}
	return ok, nil
}
