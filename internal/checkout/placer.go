package checkout

import (
	"context"

	"feira-smart/internal/domain"
	"feira-smart/internal/service"

	"github.com/google/uuid"
)

type localPlacer struct {
	orders service.OrderService
	caller domain.Caller
}

// NewLocalPlacer places orders through the order service as caller
func NewLocalPlacer(orders service.OrderService, caller domain.Caller) Placer {
	return &localPlacer{orders: orders, caller: caller}
}

func (p *localPlacer) PlaceOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	return p.orders.CreateOrder(ctx, p.caller, req)
}

func (p *localPlacer) WithdrawOrder(ctx context.Context, id uuid.UUID) error {
	_, err := p.orders.WithdrawOrder(ctx, p.caller, id)
	return err
}
