package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents an item offered by a vendor
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	VendorID    uuid.UUID `json:"vendor_id" db:"vendor_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       Money     `json:"price" db:"price"`
	Unit        string    `json:"unit" db:"unit"`
	Category    string    `json:"category" db:"category"`
	Stock       int       `json:"stock" db:"stock"`
	Available   bool      `json:"available" db:"available"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProductFilter narrows product listings
type ProductFilter struct {
	VendorID  *uuid.UUID
	Available *bool
	Query     string
}
