package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dwikikusuma/cartflow/internal/cart/app"
	"github.com/dwikikusuma/cartflow/internal/cart/domain"
	"github.com/dwikikusuma/cartflow/pkg/postgres"
)

const (
	selectCart = `SELECT id, anonymous, version, created_at, updated_at FROM carts WHERE id = $1`

	selectLines = `SELECT product_id, name, unit_price, quantity FROM cart_lines WHERE cart_id = $1 ORDER BY product_id`

	insertCart = `INSERT INTO carts (id, anonymous, version, created_at, updated_at)
VALUES ($1, $2, 1, now(), now())
RETURNING version, created_at, updated_at`

	updateCart = `UPDATE carts SET version = version + 1, updated_at = now()
WHERE id = $1 AND version = $2
RETURNING version, created_at, updated_at`

	deleteLines = `DELETE FROM cart_lines WHERE cart_id = $1`

	insertLine = `INSERT INTO cart_lines (cart_id, product_id, name, unit_price, quantity) VALUES ($1, $2, $3, $4, $5)`

	deleteCart = `DELETE FROM carts WHERE id = $1`
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type CartRepo struct {
	q DBTX
}

func NewCartRepo(q DBTX) *CartRepo {
	return &CartRepo{q: q}
}

func (r *CartRepo) FindByID(ctx context.Context, id string) (domain.Cart, error) {
	var (
		anonymous            bool
		version              int64
		createdAt, updatedAt time.Time
	)
	err := r.q.QueryRowContext(ctx, selectCart, id).Scan(&id, &anonymous, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Cart{}, app.ErrCartNotFound
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("select cart: %w", err)
	}

	lines, err := r.lines(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.Restore(id, anonymous, version, lines, createdAt, updatedAt), nil
}

func (r *CartRepo) lines(ctx context.Context, cartID string) ([]domain.ProductLine, error) {
	rows, err := r.q.QueryContext(ctx, selectLines, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.ProductLine
	for rows.Next() {
		var l domain.ProductLine
		if err := rows.Scan(&l.ProductID, &l.Name, &l.UnitPrice, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *CartRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	if errors.Is(err, app.ErrCartNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Save must run inside a transaction; the header and the line rows are
// written separately.
func (r *CartRepo) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	var (
		version              int64
		createdAt, updatedAt time.Time
	)

	if cart.Version == 0 {
		err := r.q.QueryRowContext(ctx, insertCart, cart.ID, cart.Anonymous).Scan(&version, &createdAt, &updatedAt)
		if postgres.IsUniqueViolation(err) {
			return domain.Cart{}, app.ErrStaleCart
		}
		if err != nil {
			return domain.Cart{}, fmt.Errorf("insert cart: %w", err)
		}
	} else {
		err := r.q.QueryRowContext(ctx, updateCart, cart.ID, cart.Version).Scan(&version, &createdAt, &updatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Cart{}, app.ErrStaleCart
		}
		if err != nil {
			return domain.Cart{}, fmt.Errorf("update cart: %w", err)
		}
	}

	if _, err := r.q.ExecContext(ctx, deleteLines, cart.ID); err != nil {
		return domain.Cart{}, fmt.Errorf("clear cart lines: %w", err)
	}
	lines := cart.Lines()
	for i, l := range lines {
		if _, err := r.q.ExecContext(ctx, insertLine, cart.ID, l.ProductID, l.Name, l.UnitPrice.String(), l.Quantity); err != nil {
			return domain.Cart{}, fmt.Errorf("insert line %d: %w", i, err)
		}
	}

	return domain.Restore(cart.ID, cart.Anonymous, version, lines, createdAt, updatedAt), nil
}

// DeleteByID removes the cart; its lines go with it through the foreign key.
func (r *CartRepo) DeleteByID(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, deleteCart, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return app.ErrCartNotFound
	}
	return nil
}

// CartStore reads through the pool and writes through ExecTx.
type CartStore struct {
	*CartRepo
	db *sql.DB
}

func NewCartStore(db *sql.DB) *CartStore {
	return &CartStore{CartRepo: NewCartRepo(db), db: db}
}

func (s *CartStore) ExecTx(ctx context.Context, fn func(repo app.CartRepo) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = fn(NewCartRepo(tx))
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

func (s *CartStore) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	var saved domain.Cart
	err := s.ExecTx(ctx, func(repo app.CartRepo) error {
		var err error
		saved, err = repo.Save(ctx, cart)
		return err
	})
	return saved, err
}

func (s *CartStore) DeleteByID(ctx context.Context, id string) error {
	return s.ExecTx(ctx, func(repo app.CartRepo) error {
		return repo.DeleteByID(ctx, id)
	})
}
