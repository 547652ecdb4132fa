package transport

import (
	"net/http"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderItemRequest is one line of an order payload
type OrderItemRequest struct {
	ProductID   string       `json:"product_id" validate:"required,uuid"`
	ProductName string       `json:"product_name" validate:"max=120"`
	Quantity    int          `json:"quantity" validate:"gte=1,lte=999"`
	UnitPrice   domain.Money `json:"unit_price"`
}

// CreateOrderRequest represents the order creation payload
type CreateOrderRequest struct {
	VendorID string             `json:"vendor_id" validate:"required,uuid"`
	MarketID string             `json:"market_id" validate:"required,uuid"`
	Items    []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Notes    *string            `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (req CreateOrderRequest) toDomain() domain.CreateOrderRequest {
	out := domain.CreateOrderRequest{
		VendorID: uuid.MustParse(req.VendorID),
		MarketID: uuid.MustParse(req.MarketID),
		Items:    make([]domain.OrderItemRequest, 0, len(req.Items)),
		Notes:    req.Notes,
	}
	for _, item := range req.Items {
		out.Items = append(out.Items, domain.OrderItemRequest{
			ProductID:   uuid.MustParse(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return out
}

// UpdateStatusRequest represents the order status change payload
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// RegisterRoutes registers order routes. Role rules live in the service so
// every caller gets the same answer.
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Post("/{id}/cancel", h.Withdraw)
	})
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), c, req.toDomain())
	if err != nil {
		h.logger.Debug("Order creation failed", zap.Error(err))
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("vendor_id", order.VendorID.String()),
		zap.String("total", order.Total.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// List handles GET /api/orders?status=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var status *domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s, err := domain.ParseOrderStatus(raw)
		if err != nil {
			middleware.RespondWithDomainError(w, h.logger, err)
			return
		}
		status = &s
	}

	orders, err := h.orderService.ListOrders(r.Context(), c, status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), c, id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), c, id, req.Status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", order.ID.String()),
		zap.String("status", string(order.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// Withdraw handles POST /api/orders/{id}/cancel for the customer who placed it
func (h *OrderHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.WithdrawOrder(r.Context(), c, id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
