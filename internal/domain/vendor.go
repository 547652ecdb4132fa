package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a stall ("estande") that a vendor user runs at one market
type Vendor struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	MarketID    uuid.UUID `json:"market_id" db:"market_id"`
	StallName   string    `json:"stall_name" db:"stall_name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// VendorStats summarises a vendor user's activity across all their stalls
type VendorStats struct {
	ActiveProducts int     `json:"active_products"`
	OrdersToday    int     `json:"orders_today"`
	RevenueToday   Money   `json:"revenue_today"`
	WeeklyGrowth   float64 `json:"weekly_growth"`
}
