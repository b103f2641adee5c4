// Package memory keeps carts in process memory. Transactions are serialized
// and staged writes become visible only on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dwikikusuma/cartflow/internal/cart/app"
	"github.com/dwikikusuma/cartflow/internal/cart/domain"
)

type CartStore struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	now   func() time.Time
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]domain.Cart), now: time.Now}
}

func (s *CartStore) FindByID(ctx context.Context, id string) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return find(s.carts, nil, id)
}

func (s *CartStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := s.FindByID(ctx, id)
	if err == app.ErrCartNotFound {
		return false, nil
	}
	return err == nil, err
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

func (s *CartStore) ExecTx(ctx context.Context, fn func(repo app.CartRepo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txRepo{store: s, staged: make(map[string]*domain.Cart)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, c := range tx.staged {
		if c == nil {
			delete(s.carts, id)
			continue
		}
		s.carts[id] = *c
	}
	return nil
}

// Len reports the number of stored carts.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

// txRepo stages writes; a nil entry marks a delete.
type txRepo struct {
	store  *CartStore
	staged map[string]*domain.Cart
}

func (r *txRepo) FindByID(ctx context.Context, id string) (domain.Cart, error) {
	return find(r.store.carts, r.staged, id)
}

func (r *txRepo) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, err := r.FindByID(ctx, id)
	if err == app.ErrCartNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *txRepo) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	current, err := r.FindByID(ctx, cart.ID)
	switch {
	case err == app.ErrCartNotFound:
		if cart.Version != 0 {
			return domain.Cart{}, app.ErrStaleCart
		}
	case err != nil:
		return domain.Cart{}, err
	case current.Version != cart.Version:
		return domain.Cart{}, app.ErrStaleCart
	}

	now := r.store.now().UTC()
	saved := cart.Clone()
	saved.Version = cart.Version + 1
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = now
	}
	saved.UpdatedAt = now

	r.staged[cart.ID] = &saved
	return saved.Clone(), nil
}

func (r *txRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	r.staged[id] = nil
	return nil
}

func find(carts map[string]domain.Cart, staged map[string]*domain.Cart, id string) (domain.Cart, error) {
	if c, ok := staged[id]; ok {
		if c == nil {
			return domain.Cart{}, app.ErrCartNotFound
		}
		return c.Clone(), nil
	}
	c, ok := carts[id]
	if !ok {
		return domain.Cart{}, app.ErrCartNotFound
	}
	return c.Clone(), nil
}
