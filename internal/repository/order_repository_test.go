package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"feira-smart/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestOrderRepository_CreateDecrementsStock(t *testing.T) {
	ctx := context.Background()
	customer := newTestUser(t, domain.RoleCustomer)
	vendor := newTestVendor(t, newTestUser(t, domain.RoleVendor), newTestMarket(t))
	product := newTestProduct(t, vendor, "5.00", 10)

	orders := NewOrderRepository(testDB)
	order := newPendingOrder(customer, vendor, lineFor(product, 3))
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stored, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if len(stored.Items) != 1 || stored.Items[0].Quantity != 3 {
		t.Fatalf("expected one line of 3, got %+v", stored.Items)
	}
	if !stored.Total.Equal(domain.MustMoney("15.00")) {
		t.Fatalf("expected total 15.00, got %s", stored.Total)
	}

	reloaded, err := NewProductRepository(testDB).FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if reloaded.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", reloaded.Stock)
	}
}

func TestProperty_FailedLineLeavesNoOrder(t *testing.T) {
	customer := newTestUser(t, domain.RoleCustomer)
	vendor := newTestVendor(t, newTestUser(t, domain.RoleVendor), newTestMarket(t))
	orders := NewOrderRepository(testDB)
	products := NewProductRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("an order whose last line cannot be reserved is not persisted", prop.ForAll(
		func(okLines int, stock int) bool {
			ctx := context.Background()

			var lines []domain.OrderItem
			var reserved []*domain.Product
			for i := 0; i < okLines; i++ {
				p := newTestProduct(t, vendor, "1.00", stock)
				reserved = append(reserved, p)
				lines = append(lines, lineFor(p, 1))
			}
			short := newTestProduct(t, vendor, "1.00", stock)
			lines = append(lines, lineFor(short, stock+1))

			order := newPendingOrder(customer, vendor, lines...)
			err := orders.Create(ctx, order)
			if !errors.Is(err, domain.ErrConflict) {
				t.Logf("expected conflict, got %v", err)
				return false
			}

			if _, err := orders.FindByID(ctx, order.ID); !errors.Is(err, ErrOrderNotFound) {
				t.Logf("order row survived the rollback: %v", err)
				return false
			}

			var items int
			if err := testDB.QueryRow(`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID).Scan(&items); err != nil || items != 0 {
				t.Logf("line items survived the rollback: %d %v", items, err)
				return false
			}

			for _, p := range reserved {
				reloaded, err := products.FindByID(ctx, p.ID)
				if err != nil || reloaded.Stock != stock {
					t.Logf("stock of %s changed despite rollback", p.ID)
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 4),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestOrderRepository_UnavailableProductConflicts(t *testing.T) {
	ctx := context.Background()
	customer := newTestUser(t, domain.RoleCustomer)
	vendor := newTestVendor(t, newTestUser(t, domain.RoleVendor), newTestMarket(t))
	product := newTestProduct(t, vendor, "5.00", 10)
	product.Available = false
	if err := NewProductRepository(testDB).Update(ctx, product); err != nil {
		t.Fatalf("failed to update product: %v", err)
	}

	err := NewOrderRepository(testDB).Create(ctx, newPendingOrder(customer, vendor, lineFor(product, 1)))
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestOrderRepository_VisibilityAndOrdering(t *testing.T) {
	ctx := context.Background()
	alice := newTestUser(t, domain.RoleCustomer)
	bob := newTestUser(t, domain.RoleCustomer)
	owner := newTestUser(t, domain.RoleVendor)
	vendor := newTestVendor(t, owner, newTestMarket(t))
	product := newTestProduct(t, vendor, "2.00", 100)
	orders := NewOrderRepository(testDB)

	base := time.Now().Add(-time.Hour)
	var aliceIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		o := newPendingOrder(alice, vendor, lineFor(product, 1))
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := orders.Create(ctx, o); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		aliceIDs = append(aliceIDs, o.ID)
	}
	if err := orders.Create(ctx, newPendingOrder(bob, vendor, lineFor(product, 1))); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	mine, err := orders.ListByCustomer(ctx, alice.ID, nil)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 orders for alice, got %d", len(mine))
	}
	for i, o := range mine {
		if o.CustomerID != alice.ID {
			t.Fatalf("foreign order %s leaked into alice's list", o.ID)
		}
		if o.ID != aliceIDs[len(aliceIDs)-1-i] {
			t.Fatalf("orders not newest first at position %d", i)
		}
		if len(o.Items) != 1 {
			t.Fatalf("expected items on listed order, got %d", len(o.Items))
		}
	}

	incoming, err := orders.ListByVendorOwner(ctx, owner.ID, nil)
	if err != nil {
		t.Fatalf("ListByVendorOwner failed: %v", err)
	}
	if len(incoming) != 4 {
		t.Fatalf("expected 4 orders for the stall owner, got %d", len(incoming))
	}

	cancelled := domain.OrderCancelled
	none, err := orders.ListByCustomer(ctx, alice.ID, &cancelled)
	if err != nil {
		t.Fatalf("ListByCustomer failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no cancelled orders, got %d", len(none))
	}
}

func TestOrderRepository_ItemsKeepSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	vendor := newTestVendor(t, newTestUser(t, domain.RoleVendor), newTestMarket(t))

	var lines []domain.OrderItem
	for i := 0; i < 6; i++ {
		lines = append(lines, lineFor(newTestProduct(t, vendor, "1.00", 10), 1))
	}
	order := newPendingOrder(newTestUser(t, domain.RoleCustomer), vendor, lines...)

	orders := NewOrderRepository(testDB)
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stored, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if len(stored.Items) != len(order.Items) {
		t.Fatalf("expected %d lines, got %d", len(order.Items), len(stored.Items))
	}
	for i, item := range stored.Items {
		if item.ID != order.Items[i].ID {
			t.Fatalf("line %d out of submission order", i)
		}
	}
}

func TestOrderRepository_UpdateStatusAsVendor(t *testing.T) {
	ctx := context.Background()
	customer := newTestUser(t, domain.RoleCustomer)
	owner := newTestUser(t, domain.RoleVendor)
	stranger := newTestUser(t, domain.RoleVendor)
	vendor := newTestVendor(t, owner, newTestMarket(t))
	product := newTestProduct(t, vendor, "3.00", 5)
	orders := NewOrderRepository(testDB)

	order := newPendingOrder(customer, vendor, lineFor(product, 2))
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := orders.UpdateStatusAsVendor(ctx, order.ID, stranger.ID, domain.OrderConfirmed); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for a foreign vendor, got %v", err)
	}

	untouched, err := orders.FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if untouched.Status != domain.OrderPending {
		t.Fatalf("foreign update changed status to %s", untouched.Status)
	}

	if _, err := orders.UpdateStatusAsVendor(ctx, order.ID, owner.ID, domain.OrderDelivered); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict when skipping states, got %v", err)
	}

	confirmed, err := orders.UpdateStatusAsVendor(ctx, order.ID, owner.ID, domain.OrderConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatusAsVendor failed: %v", err)
	}
	if confirmed.Status != domain.OrderConfirmed || len(confirmed.Items) != 1 {
		t.Fatalf("unexpected order after confirm: %+v", confirmed)
	}

	if _, err := orders.UpdateStatusAsVendor(ctx, order.ID, owner.ID, domain.OrderCancelled); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	reloaded, err := NewProductRepository(testDB).FindByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("failed to reload product: %v", err)
	}
	if reloaded.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", reloaded.Stock)
	}

	if _, err := orders.UpdateStatusAsVendor(ctx, order.ID, owner.ID, domain.OrderConfirmed); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict leaving a terminal state, got %v", err)
	}
}

func TestOrderRepository_WithdrawPending(t *testing.T) {
	ctx := context.Background()
	customer := newTestUser(t, domain.RoleCustomer)
	owner := newTestUser(t, domain.RoleVendor)
	vendor := newTestVendor(t, owner, newTestMarket(t))
	product := newTestProduct(t, vendor, "3.00", 5)
	orders := NewOrderRepository(testDB)

	order := newPendingOrder(customer, vendor, lineFor(product, 1))
	if err := orders.Create(ctx, order); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := orders.WithdrawPending(ctx, order.ID, owner.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}

	withdrawn, err := orders.WithdrawPending(ctx, order.ID, customer.ID)
	if err != nil {
		t.Fatalf("WithdrawPending failed: %v", err)
	}
	if withdrawn.Status != domain.OrderCancelled {
		t.Fatalf("expected cancelado, got %s", withdrawn.Status)
	}

	if _, err := orders.WithdrawPending(ctx, order.ID, customer.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on second withdraw, got %v", err)
	}
}

func TestOrderRepository_StatsForOwner(t *testing.T) {
	ctx := context.Background()
	customer := newTestUser(t, domain.RoleCustomer)
	owner := newTestUser(t, domain.RoleVendor)
	vendor := newTestVendor(t, owner, newTestMarket(t))
	product := newTestProduct(t, vendor, "2.50", 50)
	orders := NewOrderRepository(testDB)

	kept := newPendingOrder(customer, vendor, lineFor(product, 2))
	dropped := newPendingOrder(customer, vendor, lineFor(product, 4))
	for _, o := range []*domain.Order{kept, dropped} {
		if err := orders.Create(ctx, o); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := orders.WithdrawPending(ctx, dropped.ID, customer.ID); err != nil {
		t.Fatalf("WithdrawPending failed: %v", err)
	}

	from := time.Now().Add(-time.Hour)
	count, revenue, err := orders.StatsForOwner(ctx, owner.ID, from, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("StatsForOwner failed: %v", err)
	}
	if count != 1 || !revenue.Equal(domain.MustMoney("5.00")) {
		t.Fatalf("expected 1 order worth 5.00, got %d / %s", count, revenue)
	}
}
