package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = domain.NewError(domain.ErrNotFound, "order not found")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error)
	ListByVendorOwner(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error)
	UpdateStatusAsVendor(ctx context.Context, id, ownerID uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	WithdrawPending(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error)
	StatsForOwner(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, domain.Money, error)
}

type orderRepository struct {
	conn
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB, opts ...Option) OrderRepository {
	return &orderRepository{conn: newConn(db, opts)}
}

const orderColumns = `o.id, o.customer_id, o.vendor_id, o.market_id, o.total, o.status, o.notes, o.created_at, o.updated_at`

func scanOrder(row scanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.VendorID,
		&order.MarketID,
		&order.Total,
		&order.Status,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Create writes the order, its line items and the stock decrements in one
// transaction. Any failure leaves no trace of the order.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, vendor_id, market_id, total, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			order.ID,
			order.CustomerID,
			order.VendorID,
			order.MarketID,
			order.Total,
			order.Status,
			order.Notes,
			order.CreatedAt,
			order.UpdatedAt,
		)
		if err != nil {
			return wrap("failed to create order", err)
		}

		for position, item := range order.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (id, order_id, position, product_id, product_name, quantity, unit_price, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`,
				item.ID,
				order.ID,
				position,
				item.ProductID,
				item.ProductName,
				item.Quantity,
				item.UnitPrice,
				item.CreatedAt,
			)
			if err != nil {
				return wrap("failed to create order item", err)
			}

			if item.ProductID == nil {
				continue
			}

			// Conditional decrement: never read-then-write the stock
			result, err := tx.ExecContext(ctx, `
				UPDATE products
				SET stock = stock - $1, updated_at = NOW()
				WHERE id = $2 AND vendor_id = $3 AND available AND stock >= $1
			`, item.Quantity, *item.ProductID, order.VendorID)
			if err != nil {
				return wrap("failed to reserve stock", err)
			}
			if err := requireAffected(result, domain.Errorf(domain.ErrConflict, "insufficient stock for %s", item.ProductName)); err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID retrieves an order with its line items
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	return r.loadOrder(ctx, r.db, id)
}

// ListByCustomer retrieves the orders placed by a customer, newest first
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.customer_id = $1`, customerID, status)
}

// ListByVendorOwner retrieves the orders addressed to any stall owned by a user, newest first
func (r *orderRepository) ListByVendorOwner(ctx context.Context, userID uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders o JOIN vendors v ON v.id = o.vendor_id WHERE v.user_id = $1`, userID, status)
}

func (r *orderRepository) list(ctx context.Context, query string, owner uuid.UUID, status *domain.OrderStatus) ([]*domain.Order, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	args := []interface{}{owner}
	if status != nil {
		query += ` AND o.status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("failed to list orders", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, wrap("failed to scan order", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, wrap("error iterating orders", err)
	}

	if err := r.attachItems(ctx, r.db, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatusAsVendor moves an order to next when ownerID owns the order's
// stall. Orders of other stalls are reported as not found.
func (r *orderRepository) UpdateStatusAsVendor(ctx context.Context, id, ownerID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	lock := `
		SELECT o.status
		FROM orders o
		JOIN vendors v ON v.id = o.vendor_id
		WHERE o.id = $1 AND v.user_id = $2
		FOR UPDATE OF o
	`
	return r.transition(ctx, id, lock, ownerID, next, func(current domain.OrderStatus) error {
		if !current.CanTransitionTo(next) {
			return domain.Errorf(domain.ErrConflict, "cannot change order status from %s to %s", current, next)
		}
		return nil
	})
}

// WithdrawPending cancels a customer's own order while it is still pending.
// Checkout uses it to compensate sibling orders of a failed cart.
func (r *orderRepository) WithdrawPending(ctx context.Context, id, customerID uuid.UUID) (*domain.Order, error) {
	lock := `SELECT status FROM orders WHERE id = $1 AND customer_id = $2 FOR UPDATE`
	return r.transition(ctx, id, lock, customerID, domain.OrderCancelled, func(current domain.OrderStatus) error {
		if current != domain.OrderPending {
			return domain.Errorf(domain.ErrConflict, "order is already %s", current)
		}
		return nil
	})
}

func (r *orderRepository) transition(ctx context.Context, id uuid.UUID, lockQuery string, scope uuid.UUID, next domain.OrderStatus, check func(domain.OrderStatus) error) (*domain.Order, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	var updated *domain.Order
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		if err := tx.QueryRowContext(ctx, lockQuery, id, scope).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return wrap("failed to lock order", err)
		}

		if err := check(current); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, next); err != nil {
			return wrap("failed to update order status", err)
		}

		if next == domain.OrderCancelled {
			// Give reserved units back to products that still exist
			_, err := tx.ExecContext(ctx, `
				UPDATE products p
				SET stock = p.stock + i.qty, updated_at = NOW()
				FROM (
					SELECT product_id, SUM(quantity) AS qty
					FROM order_items
					WHERE order_id = $1 AND product_id IS NOT NULL
					GROUP BY product_id
				) i
				WHERE p.id = i.product_id
			`, id)
			if err != nil {
				return wrap("failed to restore stock", err)
			}
		}

		order, err := r.loadOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// StatsForOwner counts non-cancelled orders and sums their totals for every
// stall of userID within [from, to)
func (r *orderRepository) StatsForOwner(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, domain.Money, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	query := `
		SELECT COUNT(*), COALESCE(SUM(o.total), 0)
		FROM orders o
		JOIN vendors v ON v.id = o.vendor_id
		WHERE v.user_id = $1
		  AND o.created_at >= $2 AND o.created_at < $3
		  AND o.status <> 'cancelado'
	`

	var count int
	var revenue domain.Money
	if err := r.db.QueryRowContext(ctx, query, userID, from, to).Scan(&count, &revenue); err != nil {
		return 0, domain.ZeroMoney(), wrap("failed to compute order stats", err)
	}
	return count, revenue, nil
}

func (r *orderRepository) loadOrder(ctx context.Context, q DBTX, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, wrap("failed to find order by ID", err)
	}

	if err := r.attachItems(ctx, q, []*domain.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// attachItems loads the line items of all orders with a single query
func (r *orderRepository) attachItems(ctx context.Context, q DBTX, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		order.Items = []domain.OrderItem{}
		byID[order.ID] = order
		ids = append(ids, order.ID.String())
	}

	query := `
		SELECT id, order_id, product_id, product_name, quantity, unit_price, created_at
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, position
	`

	rows, err := q.QueryContext(ctx, query, ids)
	if err != nil {
		return wrap("failed to load order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		var productID uuid.NullUUID
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&productID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
		)
		if err != nil {
			return wrap("failed to scan order item", err)
		}
		if productID.Valid {
			id := productID.UUID
			item.ProductID = &id
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return wrap("error iterating order items", err)
	}
	return nil
}
