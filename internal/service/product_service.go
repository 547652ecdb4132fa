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

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductInput carries the editable fields of a product
type ProductInput struct {
	VendorID    uuid.UUID
	Name        string
	Description string
	Price       domain.Money
	Unit        string
	Category    string
	Stock       int
	Available   *bool
	ImageURL    string
}

// ProductQuery describes a catalog listing request
type ProductQuery struct {
	Filter    domain.ProductFilter
	Page      int
	PageSize  int
	SortBy    string
	SortOrder repository.SortOrder
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []*domain.Product `json:"products"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// ProductService defines the interface for product business logic
type ProductService interface {
	List(ctx context.Context, query ProductQuery) (*ProductPage, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, caller domain.Caller, input ProductInput) (*domain.Product, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, input ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error
}

type productService struct {
	productRepo repository.ProductRepository
	vendorRepo  repository.VendorRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(productRepo repository.ProductRepository, vendorRepo repository.VendorRepository) ProductService {
	return &productService{productRepo: productRepo, vendorRepo: vendorRepo}
}

func (s *productService) List(ctx context.Context, query ProductQuery) (*ProductPage, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = DefaultPageSize
	}
	if query.PageSize > MaxPageSize {
		query.PageSize = MaxPageSize
	}

	products, total, err := s.productRepo.List(ctx, query.Filter, query.Page, query.PageSize, query.SortBy, query.SortOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products:   products,
		Total:      total,
		Page:       query.Page,
		PageSize:   query.PageSize,
		TotalPages: (total + query.PageSize - 1) / query.PageSize,
	}, nil
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// Create adds a product to one of the caller's stalls
func (s *productService) Create(ctx context.Context, caller domain.Caller, input ProductInput) (*domain.Product, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can add products")
	}
	if err := validateProduct(input); err != nil {
		return nil, err
	}

	owner, err := s.vendorRepo.FindOwner(ctx, input.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find stall: %w", err)
	}
	if owner != caller.UserID {
		return nil, domain.NewError(domain.ErrPermission, "stall belongs to another vendor")
	}

	available := true
	if input.Available != nil {
		available = *input.Available
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New(),
		VendorID:    input.VendorID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Unit:        input.Unit,
		Category:    input.Category,
		Stock:       input.Stock,
		Available:   available,
		ImageURL:    input.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update edits a product of one of the caller's stalls. The stall cannot change.
func (s *productService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	product, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	input.VendorID = product.VendorID
	if err := validateProduct(input); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = input.Price
	product.Unit = input.Unit
	product.Category = input.Category
	product.Stock = input.Stock
	if input.Available != nil {
		product.Available = *input.Available
	}
	product.ImageURL = input.ImageURL
	product.UpdatedAt = time.Now()

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *productService) Delete(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// owned returns the product when it belongs to one of the caller's stalls.
// Other vendors' products are reported as not found.
func (s *productService) owned(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Product, error) {
	if caller.Role != domain.RoleVendor {
		return nil, domain.NewError(domain.ErrPermission, "only vendors can manage products")
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	owner, err := s.vendorRepo.FindOwner(ctx, product.VendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find stall: %w", err)
	}
	if owner != caller.UserID {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func validateProduct(input ProductInput) error {
	if input.VendorID == uuid.Nil {
		return domain.NewError(domain.ErrValidation, "vendor_id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return domain.NewError(domain.ErrValidation, "name is required")
	}
	if !input.Price.IsPositive() {
		return domain.NewError(domain.ErrValidation, "price must be positive")
	}
	if input.Price.Exceeds(domain.MaxPrice) {
		return domain.Errorf(domain.ErrValidation, "price must not exceed %s", domain.MaxPrice)
	}
	if strings.TrimSpace(input.Unit) == "" {
		return domain.NewError(domain.ErrValidation, "unit is required")
	}
	if input.Stock < 0 {
		return domain.NewError(domain.ErrValidation, "stock must not be negative")
	}
	if input.Stock > domain.MaxQuantity {
		return domain.Errorf(domain.ErrValidation, "stock must not exceed %d", domain.MaxQuantity)
	}
	return nil
}
