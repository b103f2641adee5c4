package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dwikikusuma/cartflow/internal/order/app"
	"github.com/dwikikusuma/cartflow/internal/order/domain"
	"github.com/dwikikusuma/cartflow/pkg/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	selectOrder = `SELECT id::text, user_id, status, currency,
	subtotal_amount::text, shipping_amount::text, total_amount::text,
	version, created_at, updated_at
FROM orders WHERE id = $1`

	selectItems = `SELECT id::text, product_id, name, unit_amount::text, quantity, line_total_amount::text
FROM order_items WHERE order_id = $1 ORDER BY id`

	insertOrder = `INSERT INTO orders (id, user_id, status, currency, subtotal_amount, shipping_amount, total_amount, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, 1, now(), now())
RETURNING version, created_at, updated_at`

	insertItem = `INSERT INTO order_items (order_id, product_id, name, unit_amount, quantity, line_total_amount)
VALUES ($1, $2, $3, $4::numeric, $5, $6::numeric)
RETURNING id::text`

	updateStatus = `UPDATE orders SET status = $2, version = version + 1, updated_at = now()
WHERE id = $1 AND version = $3
RETURNING version, created_at, updated_at`

	deleteOrder = `DELETE FROM orders WHERE id = $1`
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type OrderRepo struct {
	q DBTX
}

func NewOrderRepo(q DBTX) *OrderRepo {
	return &OrderRepo{q: q}
}

func parseAmounts(dst []*decimal.Decimal, src ...string) error {
	for i, s := range src {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("parse amount %q: %w", s, err)
		}
		*dst[i] = d
	}
	return nil
}

func (r *OrderRepo) FindByID(ctx context.Context, id string) (domain.Order, error) {
	var (
		o                         domain.Order
		status                    string
		subtotal, shipping, total string
	)
	err := r.q.QueryRow(ctx, selectOrder, id).Scan(
		&o.ID, &o.UserID, &status, &o.Currency,
		&subtotal, &shipping, &total,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, app.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	o.Status = domain.Status(status)
	if err := parseAmounts([]*decimal.Decimal{&o.SubTotalAmount, &o.ShippingAmount, &o.TotalAmount}, subtotal, shipping, total); err != nil {
		return domain.Order{}, err
	}

	rows, err := r.q.Query(ctx, selectItems, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item            domain.OrderItem
			unit, lineTotal string
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Name, &unit, &item.Quantity, &lineTotal); err != nil {
			return domain.Order{}, fmt.Errorf("scan order item: %w", err)
		}
		if err := parseAmounts([]*decimal.Decimal{&item.UnitAmount, &item.LineTotalAmount}, unit, lineTotal); err != nil {
			return domain.Order{}, err
		}
		item.OrderID = o.ID
		o.OrderItems = append(o.OrderItems, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *OrderRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	if errors.Is(err, app.ErrOrderNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Save must run inside a transaction when it inserts; items are written one
// row at a time after the header.
func (r *OrderRepo) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	if order.Version != 0 {
		return r.update(ctx, order)
	}

	err := r.q.QueryRow(ctx, insertOrder,
		order.ID, order.UserID, string(order.Status), order.Currency,
		order.SubTotalAmount.String(), order.ShippingAmount.String(), order.TotalAmount.String(),
	).Scan(&order.Version, &order.CreatedAt, &order.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return domain.Order{}, app.ErrStaleOrder
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(order.OrderItems))
	for i, item := range order.OrderItems {
		expected := item.UnitAmount.Mul(decimal.NewFromInt32(item.Quantity))
		if !item.LineTotalAmount.Equal(expected) {
			return domain.Order{}, fmt.Errorf("item %d: line total mismatch", i)
		}

		err := r.q.QueryRow(ctx, insertItem,
			order.ID, item.ProductID, item.Name, item.UnitAmount.String(), item.Quantity, item.LineTotalAmount.String(),
		).Scan(&item.ID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("failed to insert item %d: %w", i, err)
		}
		item.OrderID = order.ID
		items = append(items, item)
	}
	order.OrderItems = items
	return order, nil
}

func (r *OrderRepo) update(ctx context.Context, order domain.Order) (domain.Order, error) {
	var createdAt, updatedAt time.Time
	var version int64
	err := r.q.QueryRow(ctx, updateStatus, order.ID, string(order.Status), order.Version).
		Scan(&version, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, app.ErrStaleOrder
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}
	order.Version, order.CreatedAt, order.UpdatedAt = version, createdAt, updatedAt
	return order, nil
}

func (r *OrderRepo) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, deleteOrder, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return app.ErrOrderNotFound
	}
	return nil
}

type OrderStore struct {
	*OrderRepo
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{OrderRepo: NewOrderRepo(pool), pool: pool}
}

func (s *OrderStore) ExecTx(ctx context.Context, fn func(repo app.OrderRepo) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	err = fn(NewOrderRepo(tx))
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %w; rollback err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *OrderStore) Save(ctx context.Context, order domain.Order) (domain.Order, error) {
	var saved domain.Order
	err := s.ExecTx(ctx, func(repo app.OrderRepo) error {
		var err error
		saved, err = repo.Save(ctx, order)
		return err
	})
	return saved, err
}
