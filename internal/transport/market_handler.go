package transport

import (
	"net/http"
	"time"

	"feira-smart/internal/domain"
	"feira-smart/internal/middleware"
	"feira-smart/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// MarketRequest represents the create/update market payload
type MarketRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Location    string `json:"location" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Weekday     *int   `json:"weekday,omitempty" validate:"omitempty,gte=0,lte=6"`
	StartDate   string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	OpensAt     string `json:"opens_at" validate:"required,datetime=15:04"`
	ClosesAt    string `json:"closes_at" validate:"required,datetime=15:04"`
	ImageURL    string `json:"image_url,omitempty" validate:"omitempty,url"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=ativa agendada encerrada"`
}

func (req MarketRequest) input() service.MarketInput {
	return service.MarketInput{
		Name:        req.Name,
		Location:    req.Location,
		Description: req.Description,
		Weekday:     req.Weekday,
		StartDate:   parseDate(req.StartDate),
		EndDate:     parseDate(req.EndDate),
		OpensAt:     req.OpensAt,
		ClosesAt:    req.ClosesAt,
		ImageURL:    req.ImageURL,
		Status:      domain.MarketStatus(req.Status),
	}
}

// parseDate expects a layout already checked by the validator
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// MarketHandler handles HTTP requests for markets
type MarketHandler struct {
	marketService service.MarketService
	logger        *zap.Logger
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(marketService service.MarketService, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{marketService: marketService, logger: logger}
}

// RegisterRoutes registers market routes. Writes go through adminMiddleware.
func (h *MarketHandler) RegisterRoutes(r chi.Router, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/markets", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(adminMiddleware)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// List handles GET /api/markets?status=
func (h *MarketHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.MarketStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.MarketStatus(raw)
		status = &s
	}

	markets, err := h.marketService.List(r.Context(), status)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, markets)
}

// Get handles GET /api/markets/{id}
func (h *MarketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	market, err := h.marketService.Get(r.Context(), id)
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, market)
}

// Create handles POST /api/markets
func (h *MarketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req MarketRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	market, err := h.marketService.Create(r.Context(), req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Market created", zap.String("market_id", market.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, market)
}

// Update handles PUT /api/markets/{id}
func (h *MarketHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req MarketRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	market, err := h.marketService.Update(r.Context(), id, req.input())
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, market)
}

// Delete handles DELETE /api/markets/{id}
func (h *MarketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.marketService.Delete(r.Context(), id); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("Market deleted", zap.String("market_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}
