package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feira-smart/internal/domain"
	"feira-smart/internal/repository"

	"github.com/google/uuid"
)

// OrderService defines the interface for the order workflow
type OrderService interface {
	CreateOrder(ctx context.Context, caller domain.Caller, req domain.CreateOrderRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, caller domain.Caller, status *domain.OrderStatus) ([]*domain.Order, error)
	GetOrder(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status string) (*domain.Order, error)
	WithdrawOrder(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	vendorRepo  repository.VendorRepository
	productRepo repository.ProductRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orderRepo repository.OrderRepository,
	vendorRepo repository.VendorRepository,
	productRepo repository.ProductRepository,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
	}
}

// CreateOrder places one pending order with a single stall. The submitted
// unit prices are kept as the line snapshots.
func (s *orderService) CreateOrder(ctx context.Context, caller domain.Caller, req domain.CreateOrderRequest) (*domain.Order, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, domain.NewError(domain.ErrPermission, "only customers can place orders")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	vendor, err := s.vendorRepo.FindByID(ctx, req.VendorID)
	if err != nil {
		if errors.Is(err, repository.ErrVendorNotFound) {
			return nil, domain.NewError(domain.ErrValidation, "vendor does not exist")
		}
		return nil, fmt.Errorf("failed to find vendor: %w", err)
	}
	if vendor.MarketID != req.MarketID {
		return nil, domain.NewError(domain.ErrValidation, "vendor does not belong to this market")
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: caller.UserID,
		VendorID:   req.VendorID,
		MarketID:   req.MarketID,
		Total:      req.Total(),
		Status:     domain.OrderPending,
		Notes:      req.Notes,
		Items:      make([]domain.OrderItem, 0, len(req.Items)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok || product.VendorID != req.VendorID {
			return nil, domain.Errorf(domain.ErrValidation, "items[%d]: product is not sold by this vendor", i)
		}

		name := strings.TrimSpace(item.ProductName)
		if name == "" {
			name = product.Name
		}

		productID := item.ProductID
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			CreatedAt:   now,
		})
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// ListOrders returns the orders visible to the caller, newest first
func (s *orderService) ListOrders(ctx context.Context, caller domain.Caller, status *domain.OrderStatus) ([]*domain.Order, error) {
	var (
		orders []*domain.Order
		err    error
	)

	switch caller.Role {
	case domain.RoleCustomer:
		orders, err = s.orderRepo.ListByCustomer(ctx, caller.UserID, status)
	case domain.RoleVendor:
		orders, err = s.orderRepo.ListByVendorOwner(ctx, caller.UserID, status)
	default:
		return nil, domain.NewError(domain.ErrPermission, "role cannot list orders")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one order with its items. Orders the caller may not see
// are reported as not found.
func (s *orderService) GetOrder(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Order, error) {
	if caller.Role != domain.RoleCustomer && caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "role cannot read orders")
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	switch caller.Role {
	case domain.RoleCustomer:
		if order.CustomerID != caller.UserID {
			return nil, repository.ErrOrderNotFound
		}
	case domain.RoleVendor:
		owner, err := s.vendorRepo.FindOwner(ctx, order.VendorID)
		if err != nil && !errors.Is(err, repository.ErrVendorNotFound) {
			return nil, fmt.Errorf("failed to find vendor owner: %w", err)
		}
		if owner != caller.UserID {
			return nil, repository.ErrOrderNotFound
		}
	}
	return order, nil
}

// UpdateOrderStatus moves an order of one of the caller's stalls along the
// fulfillment workflow
func (s *orderService) UpdateOrderStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status string) (*domain.Order, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can update order status")
	}

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.UpdateStatusAsVendor(ctx, id, caller.UserID, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	return order, nil
}

// WithdrawOrder lets a customer cancel their own order while it is pending
func (s *orderService) WithdrawOrder(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Order, error) {
	if caller.Role != domain.RoleCustomer {
		return nil, domain.NewError(domain.ErrPermission, "only customers can withdraw orders")
	}

	order, err := s.orderRepo.WithdrawPending(ctx, id, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw order: %w", err)
	}
	return order, nil
}
