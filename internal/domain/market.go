package domain

import (
	"time"

	"github.com/google/uuid"
)

// MarketStatus is the lifecycle of a market edition
type MarketStatus string

const (
	MarketActive    MarketStatus = "ativa"
	MarketScheduled MarketStatus = "agendada"
	MarketClosed    MarketStatus = "encerrada"
)

// Valid reports whether s is a known market status
func (s MarketStatus) Valid() bool {
	switch s {
	case MarketActive, MarketScheduled, MarketClosed:
		return true
	}
	return false
}

// Market represents a scheduled street market ("feira").
// Recurring markets set Weekday; one-off editions set StartDate/EndDate.
type Market struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	Location    string       `json:"location" db:"location"`
	Description string       `json:"description" db:"description"`
	Weekday     *int         `json:"weekday,omitempty" db:"weekday"`
	StartDate   *time.Time   `json:"start_date,omitempty" db:"start_date"`
	EndDate     *time.Time   `json:"end_date,omitempty" db:"end_date"`
	OpensAt     string       `json:"opens_at" db:"opens_at"`
	ClosesAt    string       `json:"closes_at" db:"closes_at"`
	ImageURL    string       `json:"image_url" db:"image_url"`
	Status      MarketStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}
