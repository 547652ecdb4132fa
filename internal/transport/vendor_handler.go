package transport

import (
	"net/http"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/repository"
	"feira-smart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VendorRequest represents the stall registration/update payload
type VendorRequest struct {
	MarketID    string `json:"market_id" validate:"required,uuid"`
	StallName   string `json:"stall_name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=60"`
	AvatarURL   string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (req VendorRequest) input() service.VendorInput {
	// market_id format is checked by the validator
	marketID, _ := uuid.Parse(req.MarketID)
	return service.VendorInput{
		MarketID:    marketID,
		StallName:   req.StallName,
		Description: req.Description,
		Category:    req.Category,
		AvatarURL:   req.AvatarURL,
	}
}

// VendorHandler handles HTTP requests for stalls
type VendorHandler struct {
	vendorService service.VendorService
	logger        *zap.Logger
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(vendorService service.VendorService, logger *zap.Logger) *VendorHandler {
	return &VendorHandler{vendorService: vendorService, logger: logger}
}

// RegisterRoutes registers stall routes
func (h *VendorHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/vendors", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireRole(h.logger, domain.RoleVendor))
			r.Get("/mine", h.Mine)
			r.Get("/mine/stats", h.Stats)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/vendors?market_id=&user_id=
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	marketID, ok := queryUUID(w, r, "market_id")
	if !ok {
		return
	}
	userID, ok := queryUUID(w, r, "user_id")
	if !ok {
		return
	}

	vendors, err := h.vendorService.List(r.Context(), repository.VendorFilter{MarketID: marketID, UserID: userID})
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, vendors)
}

// Get handles GET /api/vendors/{id}
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	vendor, err := h.vendorService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, vendor)
}

// Mine handles GET /api/vendors/mine
func (h *VendorHandler) Mine(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	vendors, err := h.vendorService.Mine(r.Context(), c)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, vendors)
}

// Stats handles GET /api/vendors/mine/stats
func (h *VendorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.vendorService.Stats(r.Context(), c)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

// Create handles POST /api/vendors
func (h *VendorHandler) Create(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}

	var req VendorRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	vendor, err := h.vendorService.Register(r.Context(), c, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Stall registered",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("market_id", vendor.MarketID.String()),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, vendor)
}

// Update handles PUT /api/vendors/{id}
func (h *VendorHandler) Update(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req VendorRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	vendor, err := h.vendorService.Update(r.Context(), c, id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, vendor)
}

// Delete handles DELETE /api/vendors/{id}
func (h *VendorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.vendorService.Delete(r.Context(), c, id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
