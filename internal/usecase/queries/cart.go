package queries

import (
	"context"

	"github.com/google/uuid"
)

// CartQueries assembles the full cart read model: header, ordered items,
// computed totals and the attached discount's code.
type CartQueries interface {
	GetByID(ctx context.Context, storeID, cartID uuid.UUID) (*CartView, error)
}

// InventoryQueries exposes the non-binding availability read used by
// storefront listings. Figures are advisory; only TryReserve binds stock.
type InventoryQueries interface {
	AvailabilityBySKUs(ctx context.Context, storeID uuid.UUID, skus []string) ([]SKUAvailability, error)
}
