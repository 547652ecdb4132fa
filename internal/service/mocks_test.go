package service

import (
	"context"
	"sort"
	"time"

	"feira-smart/internal/domain"
	"feira-smart/internal/repository"

	"github.com/google/uuid"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

type mockMarketRepository struct {
	markets map[uuid.UUID]*domain.Market
}

func newMockMarketRepository() *mockMarketRepository {
	return &mockMarketRepository{markets: make(map[uuid.UUID]*domain.Market)}
}

func (m *mockMarketRepository) add(status domain.MarketStatus) *domain.Market {
	market := &domain.Market{ID: uuid.New(), Name: "Feira", Location: "Praça", OpensAt: "07:00", ClosesAt: "12:00", Status: status}
	m.markets[market.ID] = market
	return market
}

func (m *mockMarketRepository) Create(ctx context.Context, market *domain.Market) error {
	m.markets[market.ID] = market
	return nil
}

func (m *mockMarketRepository) Update(ctx context.Context, market *domain.Market) error {
	if _, ok := m.markets[market.ID]; !ok {
		return repository.ErrMarketNotFound
	}
	m.markets[market.ID] = market
	return nil
}

func (m *mockMarketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.markets[id]; !ok {
		return repository.ErrMarketNotFound
	}
	delete(m.markets, id)
	return nil
}

func (m *mockMarketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	market, ok := m.markets[id]
	if !ok {
		return nil, repository.ErrMarketNotFound
	}
	return market, nil
}

func (m *mockMarketRepository) List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error) {
	markets := []*domain.Market{}
	for _, market := range m.markets {
		if status == nil || market.Status == *status {
			markets = append(markets, market)
		}
	}
	return markets, nil
}

type mockVendorRepository struct {
	vendors map[uuid.UUID]*domain.Vendor
	// raceOnCreate makes Create behave as if a concurrent request won
	raceOnCreate bool
}

func newMockVendorRepository() *mockVendorRepository {
	return &mockVendorRepository{vendors: make(map[uuid.UUID]*domain.Vendor)}
}

func (m *mockVendorRepository) add(userID, marketID uuid.UUID) *domain.Vendor {
	vendor := &domain.Vendor{ID: uuid.New(), UserID: userID, MarketID: marketID, StallName: "Banca"}
	m.vendors[vendor.ID] = vendor
	return vendor
}

func (m *mockVendorRepository) Create(ctx context.Context, vendor *domain.Vendor) error {
	if m.raceOnCreate {
		return repository.ErrVendorAlreadyRegistered
	}
	for _, v := range m.vendors {
		if v.UserID == vendor.UserID && v.MarketID == vendor.MarketID {
			return repository.ErrVendorAlreadyRegistered
		}
	}
	m.vendors[vendor.ID] = vendor
	return nil
}

func (m *mockVendorRepository) Update(ctx context.Context, vendor *domain.Vendor) error {
	if _, ok := m.vendors[vendor.ID]; !ok {
		return repository.ErrVendorNotFound
	}
	m.vendors[vendor.ID] = vendor
	return nil
}

func (m *mockVendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.vendors[id]; !ok {
		return repository.ErrVendorNotFound
	}
	delete(m.vendors, id)
	return nil
}

func (m *mockVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	vendor, ok := m.vendors[id]
	if !ok {
		return nil, repository.ErrVendorNotFound
	}
	copied := *vendor
	return &copied, nil
}

func (m *mockVendorRepository) FindByUserAndMarket(ctx context.Context, userID, marketID uuid.UUID) (*domain.Vendor, error) {
	for _, v := range m.vendors {
		if v.UserID == userID && v.MarketID == marketID {
			return v, nil
		}
	}
	return nil, repository.ErrVendorNotFound
}

func (m *mockVendorRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Vendor, error) {
	return m.List(ctx, repository.VendorFilter{UserID: &userID})
}

func (m *mockVendorRepository) FindOwner(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error) {
	vendor, ok := m.vendors[vendorID]
	if !ok {
		return uuid.Nil, repository.ErrVendorNotFound
	}
	return vendor.UserID, nil
}

func (m *mockVendorRepository) List(ctx context.Context, filter repository.VendorFilter) ([]*domain.Vendor, error) {
	vendors := []*domain.Vendor{}
	for _, v := range m.vendors {
		if filter.UserID != nil && v.UserID != *filter.UserID {
			continue
		}
		if filter.MarketID != nil && v.MarketID != *filter.MarketID {
			continue
		}
		vendors = append(vendors, v)
	}
	return vendors, nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) add(vendorID uuid.UUID, name, price string, stock int) *domain.Product {
	product := &domain.Product{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Name:      name,
		Price:     domain.MustMoney(price),
		Unit:      "kg",
		Stock:     stock,
		Available: true,
	}
	m.products[product.ID] = product
	return product
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	found := make(map[uuid.UUID]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	products := []*domain.Product{}
	for _, p := range m.products {
		if filter.VendorID != nil && p.VendorID != *filter.VendorID {
			continue
		}
		products = append(products, p)
	}
	return products, len(products), nil
}

func (m *mockProductRepository) CountActiveByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	return len(m.products), nil
}

// mockOrderRepository keeps orders in memory and mirrors the storage rules:
// conditional stock reservation, ownership scoped transitions, restock on
// cancellation.
type mockOrderRepository struct {
	orders   map[uuid.UUID]*domain.Order
	vendors  *mockVendorRepository
	products *mockProductRepository
	failWith error
}

func newMockOrderRepository(vendors *mockVendorRepository, products *mockProductRepository) *mockOrderRepository {
	return &mockOrderRepository{
		orders:   make(map[uuid.UUID]*domain.Order),
		vendors:  vendors,
		products: products,
	}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, item := range order.Items {
		p := m.products.products[*item.ProductID]
		if p == nil || !p.Available || p.Stock < item.Quantity {
			return domain.Errorf(domain.ErrConflict, "insufficient stock for %s", item.ProductName)
		}
	}
	for _, item := range order.Items {
		m.products.products[*item.ProductID].Stock -= item.Quantity
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (m *mockOrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	return m.filter(func(o *domain.Order) bool { return o.CustomerID == customerID }, status), nil
}

func (m *mockOrderRepository) ListByVendorOwner(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	return m.filter(func(o *domain.Order) bool {
		owner, _ := m.vendors.FindOwner(ctx, o.VendorID)
		return owner == userID
	}, status), nil
}

func (m *mockOrderRepository) filter(keep func(*domain.Order) bool, status *domain.OrderStatus) []*domain.Order {
	orders := []*domain.Order{}
	for _, o := range m.orders {
		if keep(o) && (status == nil || o.Status == *status) {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID.String() > orders[j].ID.String()
	})
	return orders
}

func (m *mockOrderRepository) UpdateStatusAsVendor(ctx context.Context, id, ownerID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if owner, _ := m.vendors.FindOwner(ctx, order.VendorID); owner != ownerID {
		return nil, repository.ErrOrderNotFound
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, domain.Errorf(domain.ErrConflict, "cannot change order status from %s to %s", order.Status, next)
	}
	m.apply(order, next)
	return order, nil
}

func (m *mockOrderRepository) WithdrawPending(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	order, ok := m.orders[id]
	if !ok || order.CustomerID != customerID {
		return nil, repository.ErrOrderNotFound
	}
	if order.Status != domain.OrderPending {
		return nil, domain.Errorf(domain.ErrConflict, "order is already %s", order.Status)
	}
	m.apply(order, domain.OrderCancelled)
	return order, nil
}

func (m *mockOrderRepository) apply(order *domain.Order, next domain.OrderStatus) {
	order.Status = next
	order.UpdatedAt = time.Now()
	if next != domain.OrderCancelled {
		return
	}
	for _, item := range order.Items {
		if p, ok := m.products.products[*item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
}

func (m *mockOrderRepository) StatsForOwner(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, domain.Money, error) {
	count := 0
	revenue := domain.ZeroMoney()
	for _, o := range m.orders {
		owner, _ := m.vendors.FindOwner(ctx, o.VendorID)
		if owner != userID || o.Status == domain.OrderCancelled {
			continue
		}
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		count++
		revenue = revenue.Add(o.Total)
	}
	return count, revenue, nil
}
