// Package memory keeps orders in process memory for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dwikikusuma/cartflow/internal/order/app"
	"github.com/dwikikusuma/cartflow/internal/order/domain"
)

type OrderStore struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

func (s *OrderStore) FindByID(ctx context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.orders, nil, id)
}

func (s *OrderStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := s.FindByID(ctx, id)
	if err == app.ErrOrderNotFound {
		return false, nil
	}
	return err == nil, err
}

func (s *OrderStore) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	var saved domain.Order
	err := s.ExecTx(ctx, func(repo app.OrderRepo) error {
		var err error
		saved, err = repo.Save(ctx, o)
		return err
	})
	return saved, err
}

func (s *OrderStore) DeleteByID(ctx context.Context, id string) error {
	return s.ExecTx(ctx, func(repo app.OrderRepo) error {
		return repo.DeleteByID(ctx, id)
	})
}

func (s *OrderStore) ExecTx(ctx context.Context, fn func(repo app.OrderRepo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepo{orders: s.orders, staged: make(map[string]*domain.Order)}
	if err := fn(tx); err != nil {
		return err
	}
	for id, o := range tx.staged {
		if o == nil {
			delete(s.orders, id)
			continue
		}
		s.orders[id] = *o
	}
	return nil
}

type txRepo struct {
	orders map[string]domain.Order
	staged map[string]*domain.Order
}

func (r *txRepo) FindByID(ctx context.Context, id string) (domain.Order, error) {
	return find(r.orders, r.staged, id)
}

func (r *txRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	if err == app.ErrOrderNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *txRepo) Save(ctx context.Context, o domain.Order) (domain.Order, error) {
	current, err := r.FindByID(ctx, o.ID)
	switch {
	case err == app.ErrOrderNotFound:
		if o.Version != 0 {
			return domain.Order{}, app.ErrStaleOrder
		}
	case err != nil:
		return domain.Order{}, err
	case current.Version != o.Version:
		return domain.Order{}, app.ErrStaleOrder
	}

	now := time.Now().UTC()
	saved := clone(o)
	saved.Version = o.Version + 1
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now
	for i := range saved.OrderItems {
		saved.OrderItems[i].OrderID = saved.ID
	}

	r.staged[o.ID] = &saved
	return clone(saved), nil
}

func (r *txRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	r.staged[id] = nil
	return nil
}

func find(orders map[string]domain.Order, staged map[string]*domain.Order, id string) (domain.Order, error) {
	if o, ok := staged[id]; ok {
		if o == nil {
			return domain.Order{}, app.ErrOrderNotFound
		}
		return clone(*o), nil
	}
	o, ok := orders[id]
	if !ok {
		return domain.Order{}, app.ErrOrderNotFound
	}
	return clone(o), nil
}

func clone(o domain.Order) domain.Order {
	o.OrderItems = append([]domain.OrderItem(nil), o.OrderItems...)
	return o
}
