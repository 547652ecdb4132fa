package transport

import (
	"errors"
	"net/http"

	"feira-smart/internal/cart"
	"feira-smart/internal/checkout"
	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
}

// SetQuantityRequest represents the change-quantity payload. Zero removes the line.
type SetQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=999"`
}

// CheckoutRequest represents the optional checkout payload
type CheckoutRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// CartResponse is a cart with its computed totals
type CartResponse struct {
	Items []cart.Item  `json:"items"`
	Total domain.Money `json:"total"`
	Count int          `json:"count"`
}

func cartResponse(c *cart.Cart) CartResponse {
	return CartResponse{Items: c.Lines(), Total: c.Total(), Count: c.Count()}
}

// CartHandler handles the server-held cart and its checkout
type CartHandler struct {
	cartService  cart.Service
	coordinator  *checkout.Coordinator
	orderService service.OrderService
	logger       *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(
	cartService cart.Service,
	coordinator *checkout.Coordinator,
	orderService service.OrderService,
	logger *zap.Logger,
) *CartHandler {
	return &CartHandler{
		cartService:  cartService,
		coordinator:  coordinator,
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers cart routes for customers
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireRole(h.logger, domain.RoleCustomer))
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{productId}", h.SetQuantity)
		r.Delete("/items/{productId}", h.RemoveItem)
		r.Post("/checkout", h.Checkout)
	})
}

// Get handles GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	current, err := h.cartService.Get(r.Context(), c.UserID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(current))
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req AddCartItemRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	// product_id format is checked by the validator
	productID := uuid.MustParse(req.ProductID)
	current, err := h.cartService.AddItem(r.Context(), c.UserID, productID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(current))
}

// SetQuantity handles PATCH /api/cart/items/{productId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	var req SetQuantityRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	current, err := h.cartService.SetQuantity(r.Context(), c.UserID, productID, req.Quantity)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(current))
}

// RemoveItem handles DELETE /api/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productId")
	if !ok {
		return
	}

	current, err := h.cartService.RemoveItem(r.Context(), c.UserID, productID)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, cartResponse(current))
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.cartService.Clear(r.Context(), c.UserID); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Checkout handles POST /api/cart/checkout. A partial failure answers with
// the status of the first failed batch and every batch outcome in details.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req CheckoutRequest
	if r.ContentLength != 0 && !decode(w, r, h.logger, &req) {
		return
	}

	placer := checkout.NewLocalPlacer(h.orderService, c)
	result, err := h.coordinator.Checkout(r.Context(), c.UserID, placer, req.Notes)
	if err != nil {
		var checkoutErr *checkout.Error
		if errors.As(err, &checkoutErr) {
			middleware.RespondWithDomainErrorDetails(w, h.logger, err, map[string]interface{}{
				"groups": checkoutErr.Groups,
			})
			return
		}
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Cart checked out",
		zap.String("user_id", c.UserID.String()),
		zap.Int("orders", len(result.Orders)),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}
