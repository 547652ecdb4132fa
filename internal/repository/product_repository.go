package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound = domain.NewError(domain.ErrNotFound, "product not found")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error)
	CountActiveByOwner(ctx context.Context, userID uuid.UUID) (int, error)
}

type productRepository struct {
	conn
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB, opts ...Option) ProductRepository {
	return &productRepository{conn: newConn(db, opts)}
}

const productColumns = `id, vendor_id, name, description, price, unit, category, stock, available, image_url, created_at, updated_at`

func scanProduct(row scanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.VendorID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Unit,
		&product.Category,
		&product.Stock,
		&product.Available,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.VendorID,
		product.Name,
		product.Description,
		product.Price,
		product.Unit,
		product.Category,
		product.Stock,
		product.Available,
		product.ImageURL,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err, "fk_products_vendor") {
			return ErrVendorNotFound
		}
		return wrap("failed to create product", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, unit = $5, category = $6,
		    stock = $7, available = $8, image_url = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.Unit,
		product.Category,
		product.Stock,
		product.Available,
		product.ImageURL,
		product.UpdatedAt,
	)

	if err != nil {
		return wrap("failed to update product", err)
	}

	return requireAffected(result, ErrProductNotFound)
}

// Delete removes a product from the database using parameterized queries.
// Order lines keep their name and price snapshots.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrap("failed to delete product", err)
	}

	return requireAffected(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	product, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, wrap("failed to find product by ID", err)
	}

	return product, nil
}

// FindByIDs retrieves the products that exist among ids, keyed by ID
func (r *productRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	found := make(map[uuid.UUID]*domain.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("failed to find products", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, wrap("failed to scan product", err)
		}
		found[product.ID] = product
	}

	if err = rows.Err(); err != nil {
		return nil, wrap("error iterating products", err)
	}

	return found, nil
}

// List retrieves products with optional filtering, free-text search,
// pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter, page, pageSize int, sortBy string, sortOrder SortOrder) ([]*domain.Product, int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	// Validate sort field to prevent SQL injection
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"created_at": true,
		"stock":      true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at" // Default sort field
	}

	// Validate sort order
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc // Default sort order
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	// Build the WHERE clause
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.VendorID != nil {
		conditions = append(conditions, fmt.Sprintf("vendor_id = $%d", argIndex))
		args = append(args, *filter.VendorID)
		argIndex++
	}
	if filter.Available != nil {
		conditions = append(conditions, fmt.Sprintf("available = $%d", argIndex))
		args = append(args, *filter.Available)
		argIndex++
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		// Use ILIKE for case-insensitive search
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+q+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total products
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, wrap("failed to count products", err)
	}

	// Calculate offset
	offset := (page - 1) * pageSize

	// Build the main query with sorting and pagination
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY %s %s, id %s
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, sortBy, sortOrder, sortOrder, argIndex, argIndex+1)

	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap("failed to list products", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, wrap("failed to scan product", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, wrap("error iterating products", err)
	}

	return products, total, nil
}

// CountActiveByOwner counts available products across every stall of a user
func (r *productRepository) CountActiveByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*)
		FROM products p
		JOIN vendors v ON v.id = p.vendor_id
		WHERE v.user_id = $1 AND p.available
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, wrap("failed to count active products", err)
	}
	return count, nil
}
