// Package cart holds a customer's pending selection of products before
// checkout splits it into vendor orders.
package cart

import (
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrItemNotInCart   = domain.NewError(domain.ErrNotFound, "product is not in the cart")
	ErrInvalidQuantity = domain.NewError(domain.ErrValidation, "quantity must be positive")
)

// Item is one product line with the catalog data captured when it was added
type Item struct {
	ProductID  uuid.UUID    `json:"product_id"`
	VendorID   uuid.UUID    `json:"vendor_id"`
	VendorName string       `json:"vendor_name"`
	MarketID   uuid.UUID    `json:"market_id"`
	Name       string       `json:"name"`
	UnitPrice  domain.Money `json:"unit_price"`
	Unit       string       `json:"unit"`
	Quantity   int          `json:"quantity"`
}

// Subtotal returns unit price times quantity
func (i Item) Subtotal() domain.Money {
	return i.UnitPrice.Times(i.Quantity)
}

// Cart is the aggregate of items one owner intends to buy
type Cart struct {
	Owner     uuid.UUID `json:"owner"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty cart for owner
func New(owner uuid.UUID) *Cart {
	return &Cart{Owner: owner, Items: []Item{}}
}

// Add puts item in the cart, merging quantities when the product is
// already present. The snapshot of the newest add wins.
func (c *Cart) Add(item Item) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			item.Quantity += c.Items[i].Quantity
			c.Items[i] = item
			c.touch()
			return nil
		}
	}
	c.Items = append(c.Items, item)
	c.touch()
	return nil
}

// Remove drops a product from the cart. Removing an absent product is a no-op.
func (c *Cart) Remove(productID uuid.UUID) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			return
		}
	}
}

// SetQuantity replaces the quantity of a product; zero or less removes it
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	for i := range c.Items {
		if c.Items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			c.Remove(productID)
			return nil
		}
		c.Items[i].Quantity = quantity
		c.touch()
		return nil
	}
	return ErrItemNotInCart
}

// Find returns the line of a product
func (c *Cart) Find(productID uuid.UUID) (Item, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.touch()
}

// Settle removes the submitted quantities from the cart. Lines added or
// topped up after the submission keep the difference.
func (c *Cart) Settle(submitted []Item) {
	for _, done := range submitted {
		line, ok := c.Find(done.ProductID)
		if !ok {
			continue
		}
		if line.Quantity <= done.Quantity {
			c.Remove(done.ProductID)
			continue
		}
		_ = c.SetQuantity(done.ProductID, line.Quantity-done.Quantity)
	}
}

// Total sums every line with decimal arithmetic
func (c *Cart) Total() domain.Money {
	total := domain.ZeroMoney()
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count returns the number of units in the cart
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// Lines returns a copy of the items safe to hand to other goroutines
func (c *Cart) Lines() []Item {
	lines := make([]Item, len(c.Items))
	copy(lines, c.Items)
	return lines
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
}
