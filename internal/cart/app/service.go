package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dwikikusuma/cartflow/internal/cart/domain"
	"github.com/dwikikusuma/cartflow/pkg/lock"
	"github.com/dwikikusuma/cartflow/pkg/logger"
	"github.com/dwikikusuma/cartflow/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultMaxAttempts = 3

// LineInput describes a product line change. Units is a delta for an existing
// line and the initial quantity for a new one.
type LineInput struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Units     int
}

func (in LineInput) validate() error {
	if strings.TrimSpace(in.ProductID) == "" || in.UnitPrice.IsNegative() {
		return ErrInvalidInput
	}
	return nil
}

func (in LineInput) line() domain.ProductLine {
	return domain.ProductLine{
		ProductID: in.ProductID,
		Name:      in.Name,
		UnitPrice: in.UnitPrice,
		Quantity:  in.Units,
	}
}

type Service struct {
	store    CartStore
	products ProductChecker
	locker   lock.Locker
	log      *slog.Logger
	metrics  *metrics.Recorder
	newID    func() string

	maxAttempts int
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option { return func(s *Service) { s.locker = l } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.Recorder) Option { return func(s *Service) { s.metrics = m } }

func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.newID = fn } }

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(store CartStore, products ProductChecker, opts ...Option) *Service {
	s := &Service{
		store:       store,
		products:    products,
		locker:      lock.NewLocal(),
		log:         slog.Default(),
		newID:       uuid.NewString,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCart creates the empty cart of userID. Fails with ErrDuplicateCart if
// one exists.
func (s *Service) CreateCart(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, ErrInvalidInput
	}

	var created domain.Cart
	err := s.mutate(ctx, "create_cart", []string{userID}, func(repo CartRepo) error {
		exists, err := repo.ExistsByID(ctx, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateCart
		}
		created, err = repo.Save(ctx, domain.NewUserCart(userID))
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return created, nil
}

// CreateAnonCart creates an anonymous cart seeded with one product line.
func (s *Service) CreateAnonCart(ctx context.Context, in LineInput) (domain.Cart, error) {
	if err := in.validate(); err != nil {
		return domain.Cart{}, err
	}
	if err := s.ExistsProduct(ctx, in.ProductID); err != nil {
		return domain.Cart{}, err
	}

	cart, err := domain.NewAnonCart(s.newID(), in.line())
	if err != nil {
		return domain.Cart{}, err
	}

	var created domain.Cart
	err = s.mutate(ctx, "create_anon_cart", []string{cart.ID}, func(repo CartRepo) error {
		created, err = repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return created, nil
}

func (s *Service) GetCart(ctx context.Context, cartID string) (domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return domain.Cart{}, ErrCartNotFound
	}
	return s.store.FindByID(ctx, cartID)
}

// GetUserCart is GetCart restricted to user carts; an anonymous cart is
// reported as not found.
func (s *Service) GetUserCart(ctx context.Context, cartID string) (domain.Cart, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.IsAnon() {
		return domain.Cart{}, ErrCartNotFound
	}
	return cart, nil
}

// MergeCart moves the lines of an anonymous cart into the cart of userID,
// creating the user cart if needed, and deletes the anonymous cart. Delete and
// save commit together.
func (s *Service) MergeCart(ctx context.Context, userID, anonCartID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, ErrInvalidInput
	}
	if anonCartID == "" || anonCartID == userID {
		return domain.Cart{}, ErrCartNotFound
	}

	var merged domain.Cart
	err := s.mutate(ctx, "merge_cart", []string{userID, anonCartID}, func(repo CartRepo) error {
		user, err := repo.FindByID(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			user = domain.NewUserCart(userID)
		} else if err != nil {
			return err
		}

		anon, err := repo.FindByID(ctx, anonCartID)
		if err != nil {
			return err
		}
		if !anon.IsAnon() {
			return ErrCartNotFound
		}

		user.AddProducts(anon.Lines())

		if err := repo.DeleteByID(ctx, anonCartID); err != nil {
			return err
		}
		merged, err = repo.Save(ctx, user)
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}

	logger.FromCtx(ctx, s.log).Info("cart merged",
		slog.String("user_id", userID),
		slog.String("anon_cart_id", anonCartID),
		slog.Int("lines", len(merged.Lines())),
	)
	return merged, nil
}

// ChangeProductUnit applies a quantity delta to the user's cart. The product
// must be confirmed by the catalog before anything is loaded or written.
func (s *Service) ChangeProductUnit(ctx context.Context, userID string, in LineInput) (domain.Cart, error) {
	if err := in.validate(); err != nil {
		return domain.Cart{}, err
	}
	if err := s.ExistsProduct(ctx, in.ProductID); err != nil {
		return domain.Cart{}, err
	}

	var updated domain.Cart
	err := s.mutate(ctx, "change_product_unit", []string{userID}, func(repo CartRepo) error {
		cart, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsAnon() {
			return ErrCartNotFound
		}

		if _, ok := cart.Line(in.ProductID); ok {
			err = cart.AddUnit(in.ProductID, in.Units)
		} else {
			err = cart.AddProduct(in.line())
		}
		if err != nil {
			return err
		}

		updated, err = repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return updated, nil
}

// SelectProductsFromCart returns the lines of cart whose product id matches one
// of productIDs, ignoring case.
func (s *Service) SelectProductsFromCart(cart domain.Cart, productIDs []string) ([]domain.ProductLine, error) {
	if cart.IsAnon() {
		return nil, ErrCartNotFound
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	var chosen []domain.ProductLine
	for _, l := range cart.Lines() {
		for _, id := range productIDs {
			if strings.EqualFold(id, l.ProductID) {
				chosen = append(chosen, l)
				break
			}
		}
	}
	if len(chosen) == 0 {
		return nil, ErrNoMatchingProduct
	}
	return chosen, nil
}

// RemoveSelectedProducts drains lines from the current state of cart and
// persists once.
func (s *Service) RemoveSelectedProducts(ctx context.Context, cart domain.Cart, lines []domain.ProductLine) (domain.Cart, error) {
	var updated domain.Cart
	err := s.mutate(ctx, "remove_selected_products", []string{cart.ID}, func(repo CartRepo) error {
		current, err := repo.FindByID(ctx, cart.ID)
		if err != nil {
			return err
		}
		for _, l := range lines {
			current.RemoveProduct(l.ProductID)
		}
		updated, err = repo.Save(ctx, current)
		return err
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return updated, nil
}

// ConsumeSelection selects productIDs from the user's cart and drains them in
// the same transaction, returning the drained lines.
func (s *Service) ConsumeSelection(ctx context.Context, userID string, productIDs []string) ([]domain.ProductLine, error) {
	var chosen []domain.ProductLine
	err := s.mutate(ctx, "consume_selection", []string{userID}, func(repo CartRepo) error {
		cart, err := repo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		chosen, err = s.SelectProductsFromCart(cart, productIDs)
		if err != nil {
			return err
		}
		for _, l := range chosen {
			cart.RemoveProduct(l.ProductID)
		}
		_, err = repo.Save(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return chosen, nil
}

// ExistsProduct maps the catalog answer onto the error taxonomy.
func (s *Service) ExistsProduct(ctx context.Context, productID string) error {
	switch s.products.Exists(ctx, productID) {
	case ProductExists:
		return nil
	case ProductNotFound:
		return ErrProductNotFound
	default:
		return ErrUpstreamUnavailable
	}
}

// mutate runs fn in a transaction while holding the cart locks, retrying when
// a concurrent writer bumped the version in between.
func (s *Service) mutate(ctx context.Context, op string, cartIDs []string, fn func(repo CartRepo) error) error {
	keys := make([]string, len(cartIDs))
	for i, id := range cartIDs {
		keys[i] = "cart:" + id
	}

	unlock, err := lock.LockAll(ctx, s.locker, keys...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		err = s.store.ExecTx(ctx, fn)
		if err == nil || !errors.Is(err, ErrStaleCart) || attempt >= s.maxAttempts {
			return err
		}
		s.metrics.TxRetry(op)
		logger.FromCtx(ctx, s.log).Warn("stale cart write, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
		)
	}
}
