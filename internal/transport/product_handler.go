package transport

import (
	"net/http"
	"strconv"
	"strings"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/repository"
	"feira-smart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents the create/update product payload. VendorID is
// ignored on update.
type ProductRequest struct {
	VendorID    string       `json:"vendor_id,omitempty" validate:"omitempty,uuid"`
	Name        string       `json:"name" validate:"required,max=120"`
	Description string       `json:"description" validate:"max=2000"`
	Price       domain.Money `json:"price"`
	Unit        string       `json:"unit" validate:"required,max=20"`
	Category    string       `json:"category" validate:"max=60"`
	Stock       int          `json:"stock" validate:"gte=0"`
	Available   *bool        `json:"available,omitempty"`
	ImageURL    string       `json:"image_url,omitempty" validate:"omitempty,url"`
}

func (req ProductRequest) input() service.ProductInput {
	vendorID, _ := uuid.Parse(req.VendorID)
	return service.ProductInput{
		VendorID:    vendorID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Unit:        req.Unit,
		Category:    req.Category,
		Stock:       req.Stock,
		Available:   req.Available,
		ImageURL:    req.ImageURL,
	}
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{productService: productService, logger: logger}
}

// RegisterRoutes registers product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(h.logger, domain.RoleVendor))
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/products with filters, search, paging and sorting
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	vendorID, ok := queryUUID(w, r, "vendor_id")
	if !ok {
		return
	}

	query := service.ProductQuery{
		Filter: domain.ProductFilter{
			VendorID: vendorID,
			Query:    strings.TrimSpace(q.Get("q")),
		},
		SortBy:    q.Get("sort_by"),
		SortOrder: repository.SortOrder(strings.ToUpper(q.Get("sort_order"))),
	}

	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid available")
			return
		}
		query.Filter.Available = &available
	}

	for name, dst := range map[string]*int{"page": &query.Page, "page_size": &query.PageSize} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	page, err := h.productService.List(r.Context(), query)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, page)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Create(r.Context(), c, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("vendor_id", product.VendorID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req ProductRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	product, err := h.productService.Update(r.Context(), c, id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), c, id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
