// Package checkout turns a cart into one order per (vendor, market) pair.
package checkout

import (
	"feira-smart/internal/cart"
	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrMissingMarket = domain.NewError(domain.ErrValidation, "missing market association")
	ErrEmptyCart     = domain.NewError(domain.ErrValidation, "cart is empty")
)

// Batch is the slice of a cart sold by one stall at one market
type Batch struct {
	VendorID   uuid.UUID
	VendorName string
	MarketID   uuid.UUID
	Request    domain.CreateOrderRequest
}

type groupKey struct {
	vendor uuid.UUID
	market uuid.UUID
}

// Group partitions items by (vendor, market) in first-seen order. Every item
// must carry a market; otherwise nothing is grouped.
func Group(items []cart.Item, notes *string) ([]Batch, error) {
	for _, item := range items {
		if item.MarketID == uuid.Nil {
			return nil, ErrMissingMarket
		}
	}

	index := make(map[groupKey]int)
	batches := []Batch{}
	for _, item := range items {
		key := groupKey{vendor: item.VendorID, market: item.MarketID}
		i, ok := index[key]
		if !ok {
			i = len(batches)
			index[key] = i
			batches = append(batches, Batch{
				VendorID:   item.VendorID,
				VendorName: item.VendorName,
				MarketID:   item.MarketID,
				Request: domain.CreateOrderRequest{
					VendorID: item.VendorID,
					MarketID: item.MarketID,
					Notes:    notes,
				},
			})
		}
		batches[i].Request.Items = append(batches[i].Request.Items, domain.OrderItemRequest{
			ProductID:   item.ProductID,
			ProductName: item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	if len(batches) == 0 {
		return nil, ErrEmptyCart
	}
	return batches, nil
}
