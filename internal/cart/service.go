package cart

import (
	"context"
	"fmt"

	"feira-smart/internal/domain"
	"feira-smart/internal/repository"

	"github.com/google/uuid"
)

// Service is the server-held cart of authenticated customers
type Service interface {
	Get(ctx context.Context, owner uuid.UUID) (*Cart, error)
	AddItem(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error)
	SetQuantity(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, owner, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, owner uuid.UUID) error
}

type service struct {
	store    Store
	products repository.ProductRepository
	vendors  repository.VendorRepository
}

// NewService creates a cart service that snapshots catalog data on add
func NewService(store Store, products repository.ProductRepository, vendors repository.VendorRepository) Service {
	return &service{store: store, products: products, vendors: vendors}
}

func (s *service) Get(ctx context.Context, owner uuid.UUID) (*Cart, error) {
	return s.store.Load(ctx, owner)
}

// AddItem checks the product against the catalog and captures its name,
// price, unit and stall before merging it into the cart
func (s *service) AddItem(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	if !product.Available {
		return nil, domain.Errorf(domain.ErrConflict, "%s is not available", product.Name)
	}

	vendor, err := s.vendors.FindByID(ctx, product.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}

	return s.store.Update(ctx, owner, func(c *Cart) error {
		inCart := 0
		if existing, ok := c.Find(productID); ok {
			inCart = existing.Quantity
		}
		if inCart+quantity > product.Stock {
			return domain.Errorf(domain.ErrConflict, "only %d units of %s in stock", product.Stock, product.Name)
		}
		return c.Add(Item{
			ProductID:  product.ID,
			VendorID:   vendor.ID,
			VendorName: vendor.StallName,
			MarketID:   vendor.MarketID,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Unit:       product.Unit,
			Quantity:   quantity,
		})
	})
}

func (s *service) SetQuantity(ctx context.Context, owner, productID uuid.UUID, quantity int) (*Cart, error) {
	return s.store.Update(ctx, owner, func(c *Cart) error {
		return c.SetQuantity(productID, quantity)
	})
}

func (s *service) RemoveItem(ctx context.Context, owner, productID uuid.UUID) (*Cart, error) {
	return s.store.Update(ctx, owner, func(c *Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, owner uuid.UUID) error {
	return s.store.Delete(ctx, owner)
}
