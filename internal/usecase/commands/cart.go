package commands

import (
	"context"
	"log/slog"

	"shopkit/internal/domain/cart"
	"shopkit/internal/domain/discount"
	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/pkg/clock"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

type ItemInput struct {
	SKU      string
	Quantity int32
}

type CartCommands interface {
	CreateCart(ctx context.Context, storeID uuid.UUID, customerEmail string) (*queries.CartView, error)
	SetItems(ctx context.Context, storeID, cartID uuid.UUID, lines []ItemInput) (*queries.CartView, error)
	ApplyDiscount(ctx context.Context, storeID, cartID uuid.UUID, code string) (*queries.CartView, error)
	RemoveDiscount(ctx context.Context, storeID, cartID uuid.UUID) (*queries.CartView, error)
}

type cartCommandsImpl struct {
	cartRepo    CartRepository
	inventory   InventoryLedger
	discounts   DiscountRepository
	cartQueries queries.CartQueries
	db          TxBeginner
	clock       clock.Clock
}

func NewCartCommands(
	cartRepo CartRepository,
	inventory InventoryLedger,
	discounts DiscountRepository,
	cartQueries queries.CartQueries,
	db TxBeginner,
	clock clock.Clock,
) CartCommands {
	return &cartCommandsImpl{
		cartRepo:    cartRepo,
		inventory:   inventory,
		discounts:   discounts,
		cartQueries: cartQueries,
		db:          db,
		clock:       clock,
	}
}

func (r *cartCommandsImpl) CreateCart(ctx context.Context, storeID uuid.UUID, customerEmail string) (*queries.CartView, error) {
	email, err := cart.NewEmail(customerEmail)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidRequest)
	}

	c := cart.NewCart(storeID, email, "usd", r.clock.Now())
	if err := r.cartRepo.Create(ctx, r.db, c); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	return r.cartQueries.GetByID(ctx, storeID, c.ID())
}

// SetItems validates the whole batch against a non-binding availability read
// before touching storage, then replaces the item set atomically. If a
// discount is attached and the new subtotal invalidates it, the discount is
// silently detached rather than failing the request.
func (r *cartCommandsImpl) SetItems(ctx context.Context, storeID, cartID uuid.UUID, lines []ItemInput) (*queries.CartView, error) {
	view, err := r.loadOpenCart(ctx, storeID, cartID)
	if err != nil {
		return nil, err
	}

	items, err := r.validateLines(ctx, storeID, lines)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents()
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !isTxClosed(rollbackErr) {
			slog.Warn("failed to rollback transaction", "error", rollbackErr.Error())
		}
	}()

	if err := r.cartRepo.ReplaceItems(ctx, tx, cartID, items); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	if view.DiscountID != nil {
		if err := r.revalidateDiscount(ctx, tx, view, subtotal); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	return r.cartQueries.GetByID(ctx, storeID, cartID)
}

func (r *cartCommandsImpl) ApplyDiscount(ctx context.Context, storeID, cartID uuid.UUID, code string) (*queries.CartView, error) {
	view, err := r.loadOpenCart(ctx, storeID, cartID)
	if err != nil {
		return nil, err
	}

	items, err := r.cartRepo.ItemsByCartID(ctx, r.db, cartID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}

	dview, err := r.discounts.FindByCode(ctx, storeID, code)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrDiscountNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	d := discountFromView(dview)
	used, err := r.discounts.CustomerUsageCount(ctx, d.ID(), view.CustomerEmail)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	if err := d.Validate(subtotal, &used, r.clock.Now()); err != nil {
		return nil, errs.Mark(err, ErrInvalidDiscount)
	}

	// Attaching computes the amount but never reserves a usage slot; slots
	// are taken at checkout only.
	amount := d.Calculate(subtotal)
	if err := r.cartRepo.AttachDiscount(ctx, r.db, cartID, d.ID(), amount); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	return r.cartQueries.GetByID(ctx, storeID, cartID)
}

func (r *cartCommandsImpl) RemoveDiscount(ctx context.Context, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	if _, err := r.loadOpenCart(ctx, storeID, cartID); err != nil {
		return nil, err
	}

	if err := r.cartRepo.DetachDiscount(ctx, r.db, cartID); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	return r.cartQueries.GetByID(ctx, storeID, cartID)
}

func (r *cartCommandsImpl) loadOpenCart(ctx context.Context, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	view, err := r.cartRepo.FindByID(ctx, r.db, storeID, cartID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, errs.Mark(err, ErrCartNotFound)
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if cart.Status(view.Status) != cart.StatusOpen {
		return nil, ErrCartNotOpen
	}
	return view, nil
}

// validateLines fails fast on the first invalid line; nothing is written
// until every requested line passes.
func (r *cartCommandsImpl) validateLines(ctx context.Context, storeID uuid.UUID, lines []ItemInput) ([]cart.Item, error) {
	seen := make(map[string]bool, len(lines))
	skus := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, markf(ErrInvalidRequest, "quantity must be positive for sku %s", line.SKU)
		}
		if seen[line.SKU] {
			return nil, markf(ErrInvalidRequest, "duplicate sku %s", line.SKU)
		}
		seen[line.SKU] = true
		skus = append(skus, line.SKU)
	}

	if len(skus) == 0 {
		return nil, nil
	}

	availability, err := r.inventory.AvailableBySKUs(ctx, storeID, skus)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	items := make([]cart.Item, 0, len(lines))
	for _, line := range lines {
		a, ok := availability[line.SKU]
		if !ok {
			return nil, markf(ErrSKUNotFound, "sku %s not found", line.SKU)
		}
		if !a.Active {
			return nil, markf(ErrSKUInactive, "sku %s is inactive", line.SKU)
		}
		if a.Available < line.Quantity {
			return nil, markf(ErrInsufficientInventory, "insufficient inventory for sku %s", line.SKU)
		}
		item, err := cart.NewItem(line.SKU, a.Title, line.Quantity, a.UnitPriceCents)
		if err != nil {
			return nil, errs.Mark(err, ErrInvalidRequest)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *cartCommandsImpl) revalidateDiscount(ctx context.Context, tx db.DBTX, view *queries.CartView, subtotal int64) error {
	dview, err := r.discounts.FindByID(ctx, view.StoreID, *view.DiscountID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return r.detachSilently(ctx, tx, view.ID)
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	d := discountFromView(dview)
	used, err := r.discounts.CustomerUsageCount(ctx, d.ID(), view.CustomerEmail)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	if err := d.Validate(subtotal, &used, r.clock.Now()); err != nil {
		slog.Info("discount invalidated by item change, detaching",
			"cart_id", view.ID, "discount_id", d.ID(), "reason", err.Error())
		return r.detachSilently(ctx, tx, view.ID)
	}

	if err := r.cartRepo.AttachDiscount(ctx, tx, view.ID, d.ID(), d.Calculate(subtotal)); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	return nil
}

func (r *cartCommandsImpl) detachSilently(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if err := r.cartRepo.DetachDiscount(ctx, tx, cartID); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	return nil
}

func discountFromView(v *queries.DiscountView) *discount.Discount {
	return discount.ReconstructDiscount(
		v.ID, v.StoreID, v.Code,
		discount.Type(v.Type), v.Value, discount.Status(v.Status),
		v.MinPurchaseCents, v.MaxDiscountCents,
		v.StartsAt, v.ExpiresAt,
		v.UsageLimit, v.UsageLimitPerCustomer, v.UsageCount,
		v.StripeCouponID, v.StripePromotionID,
	)
}
