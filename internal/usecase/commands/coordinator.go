package commands

import (
	"context"
	"log/slog"

	"shopkit/internal/domain/discount"
	"shopkit/internal/infra"
	"shopkit/internal/pkg/clock"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

// ReservedLine is one successfully reserved inventory line, recorded so the
// coordinator can release it in reverse order on failure.
type ReservedLine struct {
	SKU      string
	Quantity int32
}

// HeldReservation captures everything Reserve acquired. It is the unit of
// compensation: Release undoes exactly this, nothing more.
type HeldReservation struct {
	StoreID             uuid.UUID
	Items               []ReservedLine
	DiscountID          *uuid.UUID
	DiscountAmountCents int64
}

// Coordinator acquires discount usage and inventory holds in a fixed order
// and compensates in the exact reverse order. All acquisition happens through
// conditional writes; there is no lock to hold between steps.
type Coordinator interface {
	Reserve(ctx context.Context, view *queries.CartView, items []queries.CartItemView) (*HeldReservation, *discount.Discount, error)
	Release(ctx context.Context, held *HeldReservation)
}

type coordinatorImpl struct {
	inventory InventoryLedger
	discounts DiscountRepository
	cartRepo  CartRepository
	db        TxBeginner
	clock     clock.Clock
}

func NewCoordinator(
	inventory InventoryLedger,
	discounts DiscountRepository,
	cartRepo CartRepository,
	db TxBeginner,
	clock clock.Clock,
) Coordinator {
	return &coordinatorImpl{
		inventory: inventory,
		discounts: discounts,
		cartRepo:  cartRepo,
		db:        db,
		clock:     clock,
	}
}

// Reserve runs the acquisition sequence: re-validate the attached discount,
// take a usage slot, then reserve every inventory line in cart order. The
// first failed line releases all prior holds in reverse order plus the usage
// slot before returning. A stale attached discount is detached and reported,
// never silently dropped mid-checkout.
func (c *coordinatorImpl) Reserve(ctx context.Context, view *queries.CartView, items []queries.CartItemView) (*HeldReservation, *discount.Discount, error) {
	held := &HeldReservation{StoreID: view.StoreID}

	var d *discount.Discount
	if view.DiscountID != nil {
		var err error
		d, err = c.revalidate(ctx, view)
		if err != nil {
			return nil, nil, err
		}

		ok, err := c.discounts.ReserveUsage(ctx, d.ID(), c.clock.Now())
		if err != nil {
			return nil, nil, errs.Mark(err, ErrDatabaseOperation)
		}
		if !ok {
			return nil, nil, errs.Mark(errs.Newf("usage slot unavailable for discount %s", d.ID()), ErrDiscountLimitReached)
		}
		id := d.ID()
		held.DiscountID = &id
		held.DiscountAmountCents = d.Calculate(view.SubtotalCents)
	}

	for _, item := range items {
		ok, err := c.inventory.TryReserve(ctx, view.StoreID, item.SKU, item.Quantity)
		if err != nil {
			c.Release(ctx, held)
			return nil, nil, errs.Mark(err, ErrDatabaseOperation)
		}
		if !ok {
			c.Release(ctx, held)
			return nil, nil, markf(ErrInsufficientInventory, "insufficient inventory for sku %s", item.SKU)
		}
		held.Items = append(held.Items, ReservedLine{SKU: item.SKU, Quantity: item.Quantity})
	}

	return held, d, nil
}

// Release compensates a held reservation: inventory lines in reverse
// acquisition order first, then the discount usage slot. Failures are logged
// and skipped so one stuck line never strands the rest.
func (c *coordinatorImpl) Release(ctx context.Context, held *HeldReservation) {
	for i := len(held.Items) - 1; i >= 0; i-- {
		line := held.Items[i]
		if err := c.inventory.Release(ctx, held.StoreID, line.SKU, line.Quantity); err != nil {
			slog.Error("failed to release inventory hold",
				"store_id", held.StoreID, "sku", line.SKU, "quantity", line.Quantity, "error", err.Error())
		}
	}
	if held.DiscountID != nil {
		if err := c.discounts.ReleaseUsage(ctx, *held.DiscountID); err != nil {
			slog.Error("failed to release discount usage slot",
				"discount_id", *held.DiscountID, "error", err.Error())
		}
	}
}

func (c *coordinatorImpl) revalidate(ctx context.Context, view *queries.CartView) (*discount.Discount, error) {
	dview, err := c.discounts.FindByID(ctx, view.StoreID, *view.DiscountID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, c.detachAndFail(ctx, view, err)
		}
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	d := discountFromView(dview)
	used, err := c.discounts.CustomerUsageCount(ctx, d.ID(), view.CustomerEmail)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	if err := d.Validate(view.SubtotalCents, &used, c.clock.Now()); err != nil {
		return nil, c.detachAndFail(ctx, view, err)
	}
	return d, nil
}

func (c *coordinatorImpl) detachAndFail(ctx context.Context, view *queries.CartView, cause error) error {
	if err := c.cartRepo.DetachDiscount(ctx, c.db, view.ID); err != nil {
		slog.Error("failed to detach stale discount", "cart_id", view.ID, "error", err.Error())
	}
	return errs.Mark(cause, ErrInvalidDiscount)
}
