package repository

import (
	"context"

	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

// InventoryRepository is the inventory ledger. Every mutation is a single
// conditional UPDATE whose precondition travels with the write, so there is
// no read-modify-write window anywhere in the system.
type InventoryRepository struct {
	db db.DBTX
}

func NewInventoryRepository(dbtx db.DBTX) *InventoryRepository {
	return &InventoryRepository{db: dbtx}
}

const tryReserveSQL = `
UPDATE inventory
SET reserved = reserved + $3, updated_at = now()
WHERE store_id = $1 AND sku = $2 AND on_hand - reserved >= $3
`

// TryReserve succeeds only when available stock covers qty; a losing writer
// gets false, never a partial effect.
func (r *InventoryRepository) TryReserve(ctx context.Context, storeID uuid.UUID, sku string, qty int32) (bool, error) {
	tag, err := r.db.Exec(ctx, tryReserveSQL, storeID, sku, qty)
	if err != nil {
		return false, infra.WrapRepoErr("failed to reserve inventory", err)
	}
	return tag.RowsAffected() == 1, nil
}

const releaseReservedSQL = `
UPDATE inventory
SET reserved = GREATEST(reserved - $3, 0), updated_at = now()
WHERE store_id = $1 AND sku = $2
`

// Release floors at zero so a double-release cannot drive the counter
// negative.
func (r *InventoryRepository) Release(ctx context.Context, storeID uuid.UUID, sku string, qty int32) error {
	if _, err := r.db.Exec(ctx, releaseReservedSQL, storeID, sku, qty); err != nil {
		return infra.WrapRepoErr("failed to release inventory reservation", err)
	}
	return nil
}

const commitReservedSQL = `
UPDATE inventory
SET on_hand = on_hand - $3, reserved = reserved - $3, updated_at = now()
WHERE store_id = $1 AND sku = $2 AND reserved >= $3 AND on_hand >= $3
`

// Commit converts a held reservation into a permanent decrement. Invoked only
// from the order-finalization path.
func (r *InventoryRepository) Commit(ctx context.Context, tx db.DBTX, storeID uuid.UUID, sku string, qty int32) error {
	tag, err := tx.Exec(ctx, commitReservedSQL, storeID, sku, qty)
	if err != nil {
		return infra.WrapRepoErr("failed to commit inventory reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("no matching reservation to commit", nil, infra.KindConflict)
	}
	return nil
}

const adjustOnHandSQL = `
UPDATE inventory
SET on_hand = on_hand + $3, updated_at = now()
WHERE store_id = $1 AND sku = $2 AND on_hand + $3 >= reserved
`

// Adjust is the restock path; it refuses to push on_hand below the quantity
// currently reserved.
func (r *InventoryRepository) Adjust(ctx context.Context, storeID uuid.UUID, sku string, delta int32) error {
	tag, err := r.db.Exec(ctx, adjustOnHandSQL, storeID, sku, delta)
	if err != nil {
		return infra.WrapRepoErr("failed to adjust inventory", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("adjustment would undercut outstanding reservations", nil, infra.KindConflict)
	}
	return nil
}

const selectAvailabilitySQL = `
SELECT sku, title, unit_price_cents, active, on_hand - reserved
FROM inventory
WHERE store_id = $1 AND sku = ANY($2)
`

// AvailableBySKUs is the non-binding pre-check used when building a cart; it
// never reserves anything.
func (r *InventoryRepository) AvailableBySKUs(ctx context.Context, storeID uuid.UUID, skus []string) (map[string]queries.SKUAvailability, error) {
	rows, err := r.db.Query(ctx, selectAvailabilitySQL, storeID, skus)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to read inventory availability", err)
	}
	defer rows.Close()

	result := make(map[string]queries.SKUAvailability, len(skus))
	for rows.Next() {
		var a queries.SKUAvailability
		if err := rows.Scan(&a.SKU, &a.Title, &a.UnitPriceCents, &a.Active, &a.Available); err != nil {
			return nil, infra.WrapRepoErr("failed to scan inventory availability", err)
		}
		result[a.SKU] = a
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate inventory availability", err)
	}
	return result, nil
}
