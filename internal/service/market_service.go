package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feira-smart/internal/domain"
	"feira-smart/internal/repository"

	"github.com/google/uuid"
)

// MarketInput carries the editable fields of a market
type MarketInput struct {
	Name        string
	Location    string
	Description string
	Weekday     *int
	StartDate   *time.Time
	EndDate     *time.Time
	OpensAt     string
	ClosesAt    string
	ImageURL    string
	Status      domain.MarketStatus
}

// MarketService defines the interface for market business logic
type MarketService interface {
	List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Market, error)
	Create(ctx context.Context, input MarketInput) (*domain.Market, error)
	Update(ctx context.Context, id uuid.UUID, input MarketInput) (*domain.Market, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type marketService struct {
	marketRepo repository.MarketRepository
}

// NewMarketService creates a new instance of MarketService
func NewMarketService(marketRepo repository.MarketRepository) MarketService {
	return &marketService{marketRepo: marketRepo}
}

func (s *marketService) List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error) {
	if status != nil && !status.Valid() {
		return nil, domain.Errorf(domain.ErrValidation, "unknown market status %q", *status)
	}
	markets, err := s.marketRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

func (s *marketService) Get(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	market, err := s.marketRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	return market, nil
}

func (s *marketService) Create(ctx context.Context, input MarketInput) (*domain.Market, error) {
	if input.Status == "" {
		input.Status = domain.MarketScheduled
	}
	if err := validateMarket(input); err != nil {
		return nil, err
	}

	now := time.Now()
	market := &domain.Market{ID: uuid.New(), CreatedAt: now}
	applyMarketInput(market, input, now)

	if err := s.marketRepo.Create(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}
	return market, nil
}

func (s *marketService) Update(ctx context.Context, id uuid.UUID, input MarketInput) (*domain.Market, error) {
	market, err := s.marketRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if input.Status == "" {
		input.Status = market.Status
	}
	if err := validateMarket(input); err != nil {
		return nil, err
	}

	applyMarketInput(market, input, time.Now())
	if err := s.marketRepo.Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market: %w", err)
	}
	return market, nil
}

func (s *marketService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.marketRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete market: %w", err)
	}
	return nil
}

func applyMarketInput(market *domain.Market, input MarketInput, now time.Time) {
	market.Name = strings.TrimSpace(input.Name)
	market.Location = strings.TrimSpace(input.Location)
	market.Description = input.Description
	market.Weekday = input.Weekday
	market.StartDate = input.StartDate
	market.EndDate = input.EndDate
	market.OpensAt = input.OpensAt
	market.ClosesAt = input.ClosesAt
	market.ImageURL = input.ImageURL
	market.Status = input.Status
	market.UpdatedAt = now
}

func validateMarket(input MarketInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return domain.NewError(domain.ErrValidation, "name is required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return domain.NewError(domain.ErrValidation, "location is required")
	}
	if !input.Status.Valid() {
		return domain.Errorf(domain.ErrValidation, "unknown market status %q", input.Status)
	}
	if input.Weekday != nil && (*input.Weekday < 0 || *input.Weekday > 6) {
		return domain.NewError(domain.ErrValidation, "weekday must be between 0 (Sunday) and 6 (Saturday)")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return domain.NewError(domain.ErrValidation, "end_date must not be before start_date")
	}

	opens, err := time.Parse("15:04", input.OpensAt)
	if err != nil {
		return domain.NewError(domain.ErrValidation, "opens_at must use HH:MM")
	}
	closes, err := time.Parse("15:04", input.ClosesAt)
	if err != nil {
		return domain.NewError(domain.ErrValidation, "closes_at must use HH:MM")
	}
	if !closes.After(opens) {
		return domain.NewError(domain.ErrValidation, "closes_at must be after opens_at")
	}
	return nil
}
