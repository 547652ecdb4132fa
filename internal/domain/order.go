package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of a reservation order
type OrderStatus string

const (
	OrderPending   OrderStatus = "pendente"
	OrderConfirmed OrderStatus = "confirmado"
	OrderReady     OrderStatus = "pronto"
	OrderDelivered OrderStatus = "entregue"
	OrderCancelled OrderStatus = "cancelado"
)

// orderTransitions lists the allowed next states. Fulfillment moves strictly
// forward one step at a time; cancellation is allowed until a terminal state.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderReady, OrderCancelled},
	OrderReady:     {OrderDelivered, OrderCancelled},
	OrderDelivered: nil,
	OrderCancelled: nil,
}

// ParseOrderStatus validates a raw status value
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := orderTransitions[s]; !ok {
		return "", Errorf(ErrValidation, "unknown order status %q", raw)
	}
	return s, nil
}

// Terminal reports whether no transition leaves s
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a reservation placed by one customer with one vendor
type Order struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	CustomerID uuid.UUID   `json:"customer_id" db:"customer_id"`
	VendorID   uuid.UUID   `json:"vendor_id" db:"vendor_id"`
	MarketID   uuid.UUID   `json:"market_id" db:"market_id"`
	Total      Money       `json:"total" db:"total"`
	Status     OrderStatus `json:"status" db:"status"`
	Notes      *string     `json:"notes,omitempty" db:"notes"`
	Items      []OrderItem `json:"items,omitempty"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem is an immutable line of an order. Name and unit price are
// snapshots taken when the order was placed.
type OrderItem struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OrderID     uuid.UUID  `json:"order_id" db:"order_id"`
	ProductID   *uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string     `json:"product_name" db:"product_name"`
	Quantity    int        `json:"quantity" db:"quantity"`
	UnitPrice   Money      `json:"unit_price" db:"unit_price"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Subtotal returns unit price times quantity
func (i OrderItem) Subtotal() Money {
	return i.UnitPrice.Times(i.Quantity)
}

// OrderItemRequest is one requested line of a vendor-scoped order
type OrderItemRequest struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   Money     `json:"unit_price"`
}

// MaxQuantity is the largest quantity or stock an INTEGER column holds
const MaxQuantity = 1<<31 - 1

// CreateOrderRequest asks for one order with a single vendor at a single market
type CreateOrderRequest struct {
	VendorID uuid.UUID          `json:"vendor_id"`
	MarketID uuid.UUID          `json:"market_id"`
	Items    []OrderItemRequest `json:"items"`
	Notes    *string            `json:"notes,omitempty"`
}

// Validate checks the structural rules of a creation request
func (r CreateOrderRequest) Validate() error {
	if r.VendorID == uuid.Nil {
		return Errorf(ErrValidation, "vendor_id is required")
	}
	if r.MarketID == uuid.Nil {
		return Errorf(ErrValidation, "market_id is required")
	}
	if len(r.Items) == 0 {
		return Errorf(ErrValidation, "order must have at least one item")
	}
	for i, item := range r.Items {
		if item.ProductID == uuid.Nil {
			return Errorf(ErrValidation, "items[%d].product_id is required", i)
		}
		if item.Quantity <= 0 {
			return Errorf(ErrValidation, "items[%d].quantity must be positive", i)
		}
		if item.UnitPrice.IsNegative() {
			return Errorf(ErrValidation, "items[%d].unit_price must not be negative", i)
		}
		if item.UnitPrice.Exceeds(MaxPrice) {
			return Errorf(ErrValidation, "items[%d].unit_price must not exceed %s", i, MaxPrice)
		}
		if item.Quantity > MaxQuantity {
			return Errorf(ErrValidation, "items[%d].quantity must not exceed %d", i, MaxQuantity)
		}
	}
	if r.Total().Exceeds(MaxTotal) {
		return Errorf(ErrValidation, "order total must not exceed %s", MaxTotal)
	}
	return nil
}

// Total sums unit price times quantity over all requested lines
func (r CreateOrderRequest) Total() Money {
	total := ZeroMoney()
	for _, item := range r.Items {
		total = total.Add(item.UnitPrice.Times(item.Quantity))
	}
	return total
}
