package checkout

import (
	"context"
	"fmt"
	"strings"

	"feira-smart/internal/cart"
	"feira-smart/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the create-order calls in flight per checkout
const DefaultConcurrency = 4

// Placer creates and withdraws orders on behalf of one customer. The
// server-side implementation calls the order service directly; the API
// client implements it over HTTP.
type Placer interface {
	PlaceOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	WithdrawOrder(ctx context.Context, id uuid.UUID) error
}

// GroupResult reports the outcome of one (vendor, market) batch
type GroupResult struct {
	VendorID   uuid.UUID    `json:"vendor_id"`
	VendorName string       `json:"vendor_name,omitempty"`
	MarketID   uuid.UUID    `json:"market_id"`
	Total      domain.Money `json:"total"`
	Success    bool         `json:"success"`
	OrderID    *uuid.UUID   `json:"order_id,omitempty"`
	Withdrawn  bool         `json:"withdrawn,omitempty"`
	Error      string       `json:"error,omitempty"`

	err error
}

// Err returns the failure of the batch, if any
func (g GroupResult) Err() error {
	return g.err
}

// Result is a fully successful checkout
type Result struct {
	Orders []*domain.Order `json:"orders"`
	Groups []GroupResult   `json:"groups"`
}

// Error is returned when at least one batch failed. It unwraps to the first
// failed batch's error so callers can branch on the error class.
type Error struct {
	Groups []GroupResult
	first  error
}

func (e *Error) Error() string {
	failed := []string{}
	for _, g := range e.Groups {
		if !g.Success {
			failed = append(failed, fmt.Sprintf("vendor %s: %s", g.VendorID, g.Error))
		}
	}
	return "checkout failed: " + strings.Join(failed, "; ")
}

func (e *Error) Unwrap() error {
	return e.first
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithCompensation withdraws the orders that were created when a sibling
// batch fails
func WithCompensation(enabled bool) Option {
	return func(c *Coordinator) {
		c.compensate = enabled
	}
}

// WithConcurrency bounds the number of parallel create-order calls
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// Coordinator runs checkouts against a cart store
type Coordinator struct {
	store       cart.Store
	logger      *zap.Logger
	compensate  bool
	concurrency int
}

// NewCoordinator creates a checkout coordinator. Compensation is on by default.
func NewCoordinator(store cart.Store, logger *zap.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:       store,
		logger:      logger,
		compensate:  true,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Checkout submits the stored cart of owner. Only when every batch succeeded
// are the submitted lines taken out of the cart; items added meanwhile stay.
func (c *Coordinator) Checkout(ctx context.Context, owner uuid.UUID, placer Placer, notes *string) (*Result, error) {
	current, err := c.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}

	submitted := current.Lines()
	result, err := c.Submit(ctx, submitted, placer, notes)
	if err != nil {
		return nil, err
	}

	settle := func(remaining *cart.Cart) error {
		remaining.Settle(submitted)
		return nil
	}
	if _, err := c.store.Update(context.WithoutCancel(ctx), owner, settle); err != nil {
		// Orders exist; a stale cart is the lesser problem
		c.logger.Error("Failed to clear cart after checkout",
			zap.String("owner", owner.String()),
			zap.Error(err),
		)
	}
	return result, nil
}

// Submit places one order per batch of items concurrently and waits for all
// of them. It does not touch any cart store, so client-held carts use it directly.
func (c *Coordinator) Submit(ctx context.Context, items []cart.Item, placer Placer, notes *string) (*Result, error) {
	batches, err := Group(items, notes)
	if err != nil {
		return nil, err
	}

	groups := make([]GroupResult, len(batches))
	orders := make([]*domain.Order, len(batches))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, batch := range batches {
		groups[i] = GroupResult{
			VendorID:   batch.VendorID,
			VendorName: batch.VendorName,
			MarketID:   batch.MarketID,
			Total:      batch.Request.Total(),
		}
		g.Go(func() error {
			order, err := placer.PlaceOrder(ctx, batch.Request)
			if err != nil {
				groups[i].err = err
				groups[i].Error = domain.Message(err)
				return nil
			}
			orders[i] = order
			groups[i].Success = true
			groups[i].OrderID = &order.ID
			groups[i].Total = order.Total
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for _, group := range groups {
		if group.err != nil {
			first = group.err
			break
		}
	}

	if first == nil {
		c.logger.Info("Checkout completed", zap.Int("orders", len(orders)))
		return &Result{Orders: orders, Groups: groups}, nil
	}

	c.logger.Warn("Checkout failed",
		zap.Int("groups", len(groups)),
		zap.Error(first),
	)

	if c.compensate {
		c.withdraw(ctx, placer, groups)
	}
	return nil, &Error{Groups: groups, first: first}
}

// withdraw cancels the orders of successful batches. It keeps going after a
// client disconnect so no sibling is left half compensated.
func (c *Coordinator) withdraw(ctx context.Context, placer Placer, groups []GroupResult) {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range groups {
		if groups[i].OrderID == nil {
			continue
		}
		g.Go(func() error {
			id := *groups[i].OrderID
			if err := placer.WithdrawOrder(ctx, id); err != nil {
				c.logger.Error("Failed to withdraw order after checkout failure",
					zap.String("order_id", id.String()),
					zap.Error(err),
				)
				return nil
			}
			groups[i].Withdrawn = true
			return nil
		})
	}
	_ = g.Wait()
}
