package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/repository"
	"feira-smart/internal/service"

	"github.com/google/uuid"
)

// asCaller stands in for the JWT middleware
func asCaller(c domain.Caller) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithCaller(r.Context(), c)))
		})
	}
}

func customer() domain.Caller {
	return domain.Caller{UserID: uuid.New(), Role: domain.RoleCustomer}
}

func vendorCaller() domain.Caller {
	return domain.Caller{UserID: uuid.New(), Role: domain.RoleVendor}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func record(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func serve(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return record(h, jsonRequest(method, path, body))
}

func errorMessage(w *httptest.ResponseRecorder) string {
	var response middleware.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return response.Error.Message
}

type stubMarketService struct {
	service.MarketService
	listStatus *domain.MarketStatus
	created    *service.MarketInput
	markets    map[uuid.UUID]*domain.Market
}

func (s *stubMarketService) List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error) {
	s.listStatus = status
	out := []*domain.Market{}
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *stubMarketService) Get(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	if m, ok := s.markets[id]; ok {
		return m, nil
	}
	return nil, repository.ErrMarketNotFound
}

func (s *stubMarketService) Create(ctx context.Context, input service.MarketInput) (*domain.Market, error) {
	s.created = &input
	return &domain.Market{ID: uuid.New(), Name: input.Name, Status: domain.MarketScheduled}, nil
}

type stubVendorService struct {
	service.VendorService
	caller   domain.Caller
	input    service.VendorInput
	filter   repository.VendorFilter
	stats    *domain.VendorStats
	register error
}

func (s *stubVendorService) Register(ctx context.Context, caller domain.Caller, input service.VendorInput) (*domain.Vendor, error) {
	s.caller, s.input = caller, input
	if s.register != nil {
		return nil, s.register
	}
	return &domain.Vendor{ID: uuid.New(), UserID: caller.UserID, MarketID: input.MarketID, StallName: input.StallName}, nil
}

func (s *stubVendorService) List(ctx context.Context, filter repository.VendorFilter) ([]*domain.Vendor, error) {
	s.filter = filter
	return []*domain.Vendor{}, nil
}

func (s *stubVendorService) Stats(ctx context.Context, caller domain.Caller) (*domain.VendorStats, error) {
	s.caller = caller
	return s.stats, nil
}

type stubProductService struct {
	service.ProductService
	query  service.ProductQuery
	input  service.ProductInput
	update uuid.UUID
}

func (s *stubProductService) List(ctx context.Context, query service.ProductQuery) (*service.ProductPage, error) {
	s.query = query
	return &service.ProductPage{Products: []*domain.Product{}, Page: 1, PageSize: 20}, nil
}

func (s *stubProductService) Create(ctx context.Context, caller domain.Caller, input service.ProductInput) (*domain.Product, error) {
	s.input = input
	return &domain.Product{ID: uuid.New(), VendorID: input.VendorID, Name: input.Name, Price: input.Price}, nil
}

func (s *stubProductService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	s.update, s.input = id, input
	return nil, repository.ErrProductNotFound
}

type stubOrderService struct {
	service.OrderService
	mu        sync.Mutex
	created   []domain.CreateOrderRequest
	createErr func(req domain.CreateOrderRequest) error
	status    string
	listed    *domain.OrderStatus
	withdrawn []uuid.UUID
}

func (s *stubOrderService) CreateOrder(ctx context.Context, caller domain.Caller, req domain.CreateOrderRequest) (*domain.Order, error) {
	if s.createErr != nil {
		if err := s.createErr(req); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	s.created = append(s.created, req)
	s.mu.Unlock()
	return &domain.Order{
		ID:         uuid.New(),
		CustomerID: caller.UserID,
		VendorID:   req.VendorID,
		MarketID:   req.MarketID,
		Total:      req.Total(),
		Status:     domain.OrderPending,
		Notes:      req.Notes,
	}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, caller domain.Caller, status *domain.OrderStatus) ([]*domain.Order, error) {
	s.listed = status
	return []*domain.Order{}, nil
}

func (s *stubOrderService) UpdateOrderStatus(ctx context.Context, caller domain.Caller, id uuid.UUID, status string) (*domain.Order, error) {
	s.status = status
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can update order status")
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	return &domain.Order{ID: id, Status: next}, nil
}

func (s *stubOrderService) WithdrawOrder(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Order, error) {
	s.mu.Lock()
	s.withdrawn = append(s.withdrawn, id)
	s.mu.Unlock()
	return &domain.Order{ID: id, Status: domain.OrderCancelled}, nil
}
