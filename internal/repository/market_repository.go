package repository

import (
	"context"
	"database/sql"
	"errors"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrMarketNotFound  = domain.NewError(domain.ErrNotFound, "market not found")
	ErrMarketHasOrders = domain.NewError(domain.ErrConflict, "market has orders and cannot be deleted")
)

// MarketRepository defines the interface for market data access
type MarketRepository interface {
	Create(ctx context.Context, market *domain.Market) error
	Update(ctx context.Context, market *domain.Market) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Market, error)
	List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error)
}

type marketRepository struct {
	conn
}

// NewMarketRepository creates a new instance of MarketRepository
func NewMarketRepository(db *sql.DB, opts ...Option) MarketRepository {
	return &marketRepository{conn: newConn(db, opts)}
}

const marketColumns = `id, name, location, description, weekday, start_date, end_date,
	opens_at, closes_at, image_url, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMarket(row scanner) (*domain.Market, error) {
	market := &domain.Market{}
	var weekday sql.NullInt16
	var startDate, endDate sql.NullTime

	err := row.Scan(
		&market.ID,
		&market.Name,
		&market.Location,
		&market.Description,
		&weekday,
		&startDate,
		&endDate,
		&market.OpensAt,
		&market.ClosesAt,
		&market.ImageURL,
		&market.Status,
		&market.CreatedAt,
		&market.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if weekday.Valid {
		day := int(weekday.Int16)
		market.Weekday = &day
	}
	if startDate.Valid {
		market.StartDate = &startDate.Time
	}
	if endDate.Valid {
		market.EndDate = &endDate.Time
	}
	return market, nil
}

// Create inserts a new market
func (r *marketRepository) Create(ctx context.Context, market *domain.Market) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		INSERT INTO markets (` + marketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		market.ID,
		market.Name,
		market.Location,
		market.Description,
		market.Weekday,
		market.StartDate,
		market.EndDate,
		market.OpensAt,
		market.ClosesAt,
		market.ImageURL,
		market.Status,
		market.CreatedAt,
		market.UpdatedAt,
	)
	if err != nil {
		return wrap("failed to create market", err)
	}
	return nil
}

// Update replaces the mutable fields of a market
func (r *marketRepository) Update(ctx context.Context, market *domain.Market) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		UPDATE markets
		SET name = $2, location = $3, description = $4, weekday = $5, start_date = $6,
		    end_date = $7, opens_at = $8, closes_at = $9, image_url = $10, status = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		market.ID,
		market.Name,
		market.Location,
		market.Description,
		market.Weekday,
		market.StartDate,
		market.EndDate,
		market.OpensAt,
		market.ClosesAt,
		market.ImageURL,
		market.Status,
		market.UpdatedAt,
	)
	if err != nil {
		return wrap("failed to update market", err)
	}

	return requireAffected(result, ErrMarketNotFound)
}

// Delete removes a market together with its stalls and products. A market
// with orders, directly or through one of its stalls, cannot be deleted.
func (r *marketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM markets WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err, "fk_orders_market") || isForeignKeyViolation(err, "fk_orders_vendor") {
			return ErrMarketHasOrders
		}
		return wrap("failed to delete market", err)
	}

	return requireAffected(result, ErrMarketNotFound)
}

// FindByID retrieves a market by ID
func (r *marketRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	market, err := scanMarket(r.db.QueryRowContext(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMarketNotFound
		}
		return nil, wrap("failed to find market by ID", err)
	}
	return market, nil
}

// List retrieves markets, optionally filtered by status, newest editions first
func (r *marketRepository) List(ctx context.Context, status *domain.MarketStatus) ([]*domain.Market, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `SELECT ` + marketColumns + ` FROM markets`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY start_date DESC NULLS LAST, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("failed to list markets", err)
	}
	defer rows.Close()

	markets := []*domain.Market{}
	for rows.Next() {
		market, err := scanMarket(rows)
		if err != nil {
			return nil, wrap("failed to scan market", err)
		}
		markets = append(markets, market)
	}

	if err = rows.Err(); err != nil {
		return nil, wrap("error iterating markets", err)
	}

	return markets, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrap("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
