package domain

import (
	"sort"
	"time"

	"github.com/dwikikusuma/cartflow/pkg/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateProduct = apperr.New(apperr.ErrConflict, "product already in cart")
	ErrProductNotInCart = apperr.New(apperr.ErrNotFound, "product not in cart")
	ErrInvalidQuantity  = apperr.New(apperr.ErrValidation, "quantity must be positive")
	ErrNegativePrice    = apperr.New(apperr.ErrValidation, "unit price cannot be negative")
)

type ProductLine struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l ProductLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l ProductLine) validate() error {
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Cart is the aggregate for one user or anonymous shopper. Lines are keyed by
// product id and never hold a quantity <= 0. The zero value is not usable;
// build carts with NewUserCart, NewAnonCart or Restore.
type Cart struct {
	ID        string
	Anonymous bool
	// Version is the persisted revision, 0 for a cart never saved.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time

	lines map[string]ProductLine
}

func NewUserCart(userID string) Cart {
	return Cart{ID: userID, lines: make(map[string]ProductLine)}
}

func NewAnonCart(id string, seed ProductLine) (Cart, error) {
	c := Cart{ID: id, Anonymous: true, lines: make(map[string]ProductLine)}
	if err := c.AddProduct(seed); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Restore rebuilds a persisted cart. Lines with quantity <= 0 are dropped.
func Restore(id string, anonymous bool, version int64, lines []ProductLine, createdAt, updatedAt time.Time) Cart {
	c := Cart{
		ID:        id,
		Anonymous: anonymous,
		Version:   version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		lines:     make(map[string]ProductLine, len(lines)),
	}
	for _, l := range lines {
		if l.Quantity > 0 {
			c.lines[l.ProductID] = l
		}
	}
	return c
}

func (c *Cart) AddProduct(line ProductLine) error {
	if err := line.validate(); err != nil {
		return err
	}
	if _, ok := c.lines[line.ProductID]; ok {
		return ErrDuplicateProduct
	}
	c.ensure()
	c.lines[line.ProductID] = line
	return nil
}

// AddUnit adds delta (possibly negative) to an existing line and drops the
// line when the result is not positive.
func (c *Cart) AddUnit(productID string, delta int) error {
	line, ok := c.lines[productID]
	if !ok {
		return ErrProductNotInCart
	}
	line.Quantity += delta
	if line.Quantity <= 0 {
		delete(c.lines, productID)
		return nil
	}
	c.lines[productID] = line
	return nil
}

func (c *Cart) RemoveProduct(productID string) bool {
	if _, ok := c.lines[productID]; !ok {
		return false
	}
	delete(c.lines, productID)
	return true
}

// AddProducts merges lines into the cart, summing quantities of products
// already present.
func (c *Cart) AddProducts(lines []ProductLine) {
	c.ensure()
	for _, in := range lines {
		cur, ok := c.lines[in.ProductID]
		if !ok {
			if in.Quantity > 0 {
				c.lines[in.ProductID] = in
			}
			continue
		}
		cur.Quantity += in.Quantity
		if cur.Quantity <= 0 {
			delete(c.lines, in.ProductID)
			continue
		}
		c.lines[in.ProductID] = cur
	}
}

func (c Cart) IsAnon() bool { return c.Anonymous }

func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c Cart) Line(productID string) (ProductLine, bool) {
	l, ok := c.lines[productID]
	return l, ok
}

// Lines returns a copy of the lines ordered by product id.
func (c Cart) Lines() []ProductLine {
	out := make([]ProductLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (c Cart) Clone() Cart {
	cp := c
	cp.lines = make(map[string]ProductLine, len(c.lines))
	for k, v := range c.lines {
		cp.lines[k] = v
	}
	return cp
}

func (c *Cart) ensure() {
	if c.lines == nil {
		c.lines = make(map[string]ProductLine)
	}
}
