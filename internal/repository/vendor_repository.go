package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrVendorNotFound          = domain.NewError(domain.ErrNotFound, "vendor not found")
	ErrVendorAlreadyRegistered = domain.NewError(domain.ErrConflict, "already registered at this market")
	ErrVendorHasOrders         = domain.NewError(domain.ErrConflict, "stall has orders and cannot be deleted")
)

// VendorFilter narrows vendor listings
type VendorFilter struct {
	MarketID *uuid.UUID
	UserID   *uuid.UUID
}

// VendorRepository defines the interface for vendor (stall) data access
type VendorRepository interface {
	Create(ctx context.Context, vendor *domain.Vendor) error
	Update(ctx context.Context, vendor *domain.Vendor) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error)
	FindByUserAndMarket(ctx context.Context, userID, marketID uuid.UUID) (*domain.Vendor, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Vendor, error)
	FindOwner(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context, filter VendorFilter) ([]*domain.Vendor, error)
}

type vendorRepository struct {
	conn
}

// NewVendorRepository creates a new instance of VendorRepository
func NewVendorRepository(db *sql.DB, opts ...Option) VendorRepository {
	return &vendorRepository{conn: newConn(db, opts)}
}

const vendorColumns = `id, user_id, market_id, stall_name, description, category, avatar_url, created_at, updated_at`

func scanVendor(row scanner) (*domain.Vendor, error) {
	vendor := &domain.Vendor{}
	err := row.Scan(
		&vendor.ID,
		&vendor.UserID,
		&vendor.MarketID,
		&vendor.StallName,
		&vendor.Description,
		&vendor.Category,
		&vendor.AvatarURL,
		&vendor.CreatedAt,
		&vendor.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return vendor, nil
}

// Create inserts a stall. The (user_id, market_id) unique constraint turns a
// concurrent duplicate registration into ErrVendorAlreadyRegistered.
func (r *vendorRepository) Create(ctx context.Context, vendor *domain.Vendor) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		INSERT INTO vendors (` + vendorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		vendor.ID,
		vendor.UserID,
		vendor.MarketID,
		vendor.StallName,
		vendor.Description,
		vendor.Category,
		vendor.AvatarURL,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	)

	if err != nil {
		switch {
		case isUniqueViolation(err, "vendors_user_market_key"):
			return ErrVendorAlreadyRegistered
		case isForeignKeyViolation(err, "fk_vendors_market"):
			return ErrMarketNotFound
		}
		return wrap("failed to create vendor", err)
	}

	return nil
}

// Update replaces the descriptive fields of a stall
func (r *vendorRepository) Update(ctx context.Context, vendor *domain.Vendor) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		UPDATE vendors
		SET stall_name = $2, description = $3, category = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		vendor.ID,
		vendor.StallName,
		vendor.Description,
		vendor.Category,
		vendor.AvatarURL,
		vendor.UpdatedAt,
	)
	if err != nil {
		return wrap("failed to update vendor", err)
	}

	return requireAffected(result, ErrVendorNotFound)
}

// Delete removes a stall and its products. Stalls referenced by orders are
// kept so the order history stays intact.
func (r *vendorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err, "fk_orders_vendor") {
			return ErrVendorHasOrders
		}
		return wrap("failed to delete vendor", err)
	}

	return requireAffected(result, ErrVendorNotFound)
}

// FindByID retrieves a stall by ID
func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	return r.findOne(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, id)
}

// FindByUserAndMarket retrieves the stall a user runs at a market
func (r *vendorRepository) FindByUserAndMarket(ctx context.Context, userID, marketID uuid.UUID) (*domain.Vendor, error) {
	return r.findOne(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE user_id = $1 AND market_id = $2`, userID, marketID)
}

// FindByUser retrieves every stall owned by a user
func (r *vendorRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Vendor, error) {
	return r.List(ctx, VendorFilter{UserID: &userID})
}

// FindOwner resolves the user that owns a stall
func (r *vendorRepository) FindOwner(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var owner uuid.UUID
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM vendors WHERE id = $1`, vendorID).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrVendorNotFound
		}
		return uuid.Nil, wrap("failed to find vendor owner", err)
	}
	return owner, nil
}

// List retrieves stalls matching the filter, newest first
func (r *vendorRepository) List(ctx context.Context, filter VendorFilter) ([]*domain.Vendor, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.MarketID != nil {
		query += fmt.Sprintf(" AND market_id = $%d", argIndex)
		args = append(args, *filter.MarketID)
		argIndex++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *filter.UserID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("failed to list vendors", err)
	}
	defer rows.Close()

	vendors := []*domain.Vendor{}
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, wrap("failed to scan vendor", err)
		}
		vendors = append(vendors, vendor)
	}

	if err = rows.Err(); err != nil {
		return nil, wrap("error iterating vendors", err)
	}

	return vendors, nil
}

func (r *vendorRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Vendor, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	vendor, err := scanVendor(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, wrap("failed to find vendor", err)
	}
	return vendor, nil
}
