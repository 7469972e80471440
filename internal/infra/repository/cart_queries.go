package repository

import (
	"context"
	"log/slog"
	"sort"

	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

// CartQueryService builds the cart read model on top of the write-side
// repositories. Totals are always recomputed from the stored items.
type CartQueryService struct {
	db        db.DBTX
	carts     *CartRepository
	discounts *DiscountRepository
}

func NewCartQueryService(dbtx db.DBTX, carts *CartRepository, discounts *DiscountRepository) *CartQueryService {
	return &CartQueryService{db: dbtx, carts: carts, discounts: discounts}
}

func (s *CartQueryService) GetByID(ctx context.Context, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	view, err := s.carts.FindByID(ctx, s.db, storeID, cartID)
	if err != nil {
		return nil, err
	}

	items, err := s.carts.ItemsByCartID(ctx, s.db, cartID)
	if err != nil {
		return nil, err
	}
	view.Items = items

	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}
	view.SubtotalCents = subtotal

	discountCents := view.DiscountAmountCents
	if discountCents > subtotal {
		discountCents = subtotal
	}
	view.TotalCents = subtotal - discountCents

	if view.DiscountID != nil {
		dview, err := s.discounts.FindByID(ctx, storeID, *view.DiscountID)
		switch {
		case err == nil:
			view.DiscountCode = dview.Code
		case infra.IsKind(err, infra.KindNotFound):
			// The discount row vanished underneath the cart; show the cart
			// without a code rather than failing the read.
			slog.Warn("attached discount no longer exists", "cart_id", cartID, "discount_id", *view.DiscountID)
		default:
			return nil, err
		}
	}

	return view, nil
}

// InventoryQueryService answers availability listings in stable SKU order.
type InventoryQueryService struct {
	db        db.DBTX
	inventory *InventoryRepository
}

func NewInventoryQueryService(dbtx db.DBTX, inventory *InventoryRepository) *InventoryQueryService {
	return &InventoryQueryService{db: dbtx, inventory: inventory}
}

func (s *InventoryQueryService) AvailabilityBySKUs(ctx context.Context, storeID uuid.UUID, skus []string) ([]queries.SKUAvailability, error) {
	bySKU, err := s.inventory.AvailableBySKUs(ctx, storeID, skus)
	if err != nil {
		return nil, err
	}

	out := make([]queries.SKUAvailability, 0, len(bySKU))
	for _, a := range bySKU {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
