package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"feira-smart/internal/domain"
	"feira-smart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorInput carries the fields of a stall registration or update
type VendorInput struct {
	MarketID    uuid.UUID
	StallName   string
	Description string
	Category    string
	AvatarURL   string
}

// VendorService defines the interface for stall business logic
type VendorService interface {
	Register(ctx context.Context, caller domain.Caller, input VendorInput) (*domain.Vendor, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, input VendorInput) (*domain.Vendor, error)
	Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Vendor, error)
	List(ctx context.Context, filter repository.VendorFilter) ([]*domain.Vendor, error)
	Mine(ctx context.Context, caller domain.Caller) ([]*domain.Vendor, error)
	Stats(ctx context.Context, caller domain.Caller) (*domain.VendorStats, error)
}

type vendorService struct {
	vendorRepo  repository.VendorRepository
	marketRepo  repository.MarketRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	now         func() time.Time
}

// NewVendorService creates a new instance of VendorService
func NewVendorService(
	vendorRepo repository.VendorRepository,
	marketRepo repository.MarketRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
) VendorService {
	return &vendorService{
		vendorRepo:  vendorRepo,
		marketRepo:  marketRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		now:         time.Now,
	}
}

// Register creates the caller's stall at a market. A user runs at most one
// stall per market; the storage constraint catches concurrent duplicates.
func (s *vendorService) Register(ctx context.Context, caller domain.Caller, input VendorInput) (*domain.Vendor, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can register a stall")
	}
	if input.MarketID == uuid.Nil {
		return nil, domain.NewError(domain.ErrValidation, "market_id is required")
	}
	if strings.TrimSpace(input.StallName) == "" {
		return nil, domain.NewError(domain.ErrValidation, "stall_name is required")
	}

	if _, err := s.marketRepo.FindByID(ctx, input.MarketID); err != nil {
		return nil, fmt.Errorf("failed to find market: %w", err)
	}

	existing, err := s.vendorRepo.FindByUserAndMarket(ctx, caller.UserID, input.MarketID)
	if err != nil && !errors.Is(err, repository.ErrVendorNotFound) {
		return nil, fmt.Errorf("failed to check existing stall: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrVendorAlreadyRegistered
	}

	now := s.now()
	vendor := &domain.Vendor{
		ID:          uuid.New(),
		UserID:      caller.UserID,
		MarketID:    input.MarketID,
		StallName:   strings.TrimSpace(input.StallName),
		Description: input.Description,
		Category:    input.Category,
		AvatarURL:   input.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to register stall: %w", err)
	}
	return vendor, nil
}

// Update edits a stall owned by the caller. The market cannot change.
func (s *vendorService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, input VendorInput) (*domain.Vendor, error) {
	vendor, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.StallName) == "" {
		return nil, domain.NewError(domain.ErrValidation, "stall_name is required")
	}

	vendor.StallName = strings.TrimSpace(input.StallName)
	vendor.Description = input.Description
	vendor.Category = input.Category
	vendor.AvatarURL = input.AvatarURL
	vendor.UpdatedAt = s.now()

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		return nil, fmt.Errorf("failed to update stall: %w", err)
	}
	return vendor, nil
}

func (s *vendorService) Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.vendorRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stall: %w", err)
	}
	return nil
}

func (s *vendorService) Get(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stall: %w", err)
	}
	return vendor, nil
}

func (s *vendorService) List(ctx context.Context, filter repository.VendorFilter) ([]*domain.Vendor, error) {
	vendors, err := s.vendorRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalls: %w", err)
	}
	return vendors, nil
}

func (s *vendorService) Mine(ctx context.Context, caller domain.Caller) ([]*domain.Vendor, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors own stalls")
	}
	vendors, err := s.vendorRepo.FindByUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stalls: %w", err)
	}
	return vendors, nil
}

// Stats builds the dashboard numbers across every stall of the caller.
// Weekly growth compares the last seven days of revenue with the seven
// days before them.
func (s *vendorService) Stats(ctx context.Context, caller domain.Caller) (*domain.VendorStats, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors have a dashboard")
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	active, err := s.productRepo.CountActiveByOwner(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	ordersToday, revenueToday, err := s.orderRepo.StatsForOwner(ctx, caller.UserID, startOfDay, startOfDay.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to compute today's stats: %w", err)
	}

	weekStart := now.AddDate(0, 0, -7)
	_, thisWeek, err := s.orderRepo.StatsForOwner(ctx, caller.UserID, weekStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weekly stats: %w", err)
	}
	_, lastWeek, err := s.orderRepo.StatsForOwner(ctx, caller.UserID, weekStart.AddDate(0, 0, -7), weekStart)
	if err != nil {
		return nil, fmt.Errorf("failed to compute weekly stats: %w", err)
	}

	return &domain.VendorStats{
		ActiveProducts: active,
		OrdersToday:    ordersToday,
		RevenueToday:   revenueToday,
		WeeklyGrowth:   weeklyGrowth(thisWeek, lastWeek),
	}, nil
}

// weeklyGrowth returns the percent change rounded to one decimal
func weeklyGrowth(current, previous domain.Money) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	pct := current.Sub(previous.Decimal).Div(previous.Decimal).Mul(decimal.NewFromInt(100)).Round(1)
	f, _ := pct.Float64()
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// owned returns the stall when the caller owns it. Stalls of other users
// are reported as not found.
func (s *vendorService) owned(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Vendor, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can manage stalls")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stall: %w", err)
	}
	if vendor.UserID != caller.UserID {
		return nil, repository.ErrVendorNotFound
	}
	return vendor, nil
}
