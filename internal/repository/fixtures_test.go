package repository

import (
	"context"
	"testing"
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

func newTestUser(t *testing.T, role domain.Role) *domain.User {
	t.Helper()
	id := uuid.New()
	user := &domain.User{
		ID:           id,
		Email:        id.String() + "@feira.test",
		PasswordHash: "$2a$10$notarealhashnotarealhashnotarealhashnotarealhash1234",
		Name:         "Test " + string(role),
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := NewUserRepository(testDB).Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func newTestMarket(t *testing.T) *domain.Market {
	t.Helper()
	weekday := 6
	market := &domain.Market{
		ID:        uuid.New(),
		Name:      "Feira do Bairro",
		Location:  "Praça Central",
		Weekday:   &weekday,
		OpensAt:   "07:00",
		ClosesAt:  "13:00",
		Status:    domain.MarketActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := NewMarketRepository(testDB).Create(context.Background(), market); err != nil {
		t.Fatalf("failed to create market: %v", err)
	}
	return market
}

func newTestVendor(t *testing.T, owner *domain.User, market *domain.Market) *domain.Vendor {
	t.Helper()
	vendor := &domain.Vendor{
		ID:        uuid.New(),
		UserID:    owner.ID,
		MarketID:  market.ID,
		StallName: "Banca " + owner.Name,
		Category:  "hortifruti",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := NewVendorRepository(testDB).Create(context.Background(), vendor); err != nil {
		t.Fatalf("failed to create vendor: %v", err)
	}
	return vendor
}

func newTestProduct(t *testing.T, vendor *domain.Vendor, price string, stock int) *domain.Product {
	t.Helper()
	product := &domain.Product{
		ID:        uuid.New(),
		VendorID:  vendor.ID,
		Name:      "Tomate",
		Price:     domain.MustMoney(price),
		Unit:      "kg",
		Category:  "legumes",
		Stock:     stock,
		Available: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := NewProductRepository(testDB).Create(context.Background(), product); err != nil {
		t.Fatalf("failed to create product: %v", err)
	}
	return product
}

func newPendingOrder(customer *domain.User, vendor *domain.Vendor, lines ...domain.OrderItem) *domain.Order {
	now := time.Now()
	order := &domain.Order{
		ID:         uuid.New(),
		CustomerID: customer.ID,
		VendorID:   vendor.ID,
		MarketID:   vendor.MarketID,
		Status:     domain.OrderPending,
		Total:      domain.ZeroMoney(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, line := range lines {
		line.ID = uuid.New()
		line.OrderID = order.ID
		line.CreatedAt = now
		order.Items = append(order.Items, line)
		order.Total = order.Total.Add(line.Subtotal())
	}
	return order
}

func lineFor(product *domain.Product, quantity int) domain.OrderItem {
	id := product.ID
	return domain.OrderItem{
		ProductID:   &id,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
	}
}
