package commands

import (
	"context"
	"log/slog"

	"shopkit/internal/domain/cart"
	"shopkit/internal/domain/discount"
	"shopkit/internal/infra"
	"shopkit/internal/pkg/clock"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

type CheckoutInput struct {
	SuccessURL        string
	CancelURL         string
	CollectShipping   bool
	ShippingCountries []string
	ShippingOptions   []ShippingOption
}

type CheckoutResult struct {
	SessionID   string
	CheckoutURL string
}

type CheckoutCommands interface {
	Checkout(ctx context.Context, storeID, cartID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
	FinalizePaymentSession(ctx context.Context, sessionRef string) error
	ReleaseCartReservations(ctx context.Context, storeID, cartID uuid.UUID) error
}

type checkoutCommandsImpl struct {
	cartRepo    CartRepository
	inventory   InventoryLedger
	discounts   DiscountRepository
	orders      OrderRepository
	coordinator Coordinator
	gateway     PaymentGateway
	db          TxBeginner
	clock       clock.Clock
}

func NewCheckoutCommands(
	cartRepo CartRepository,
	inventory InventoryLedger,
	discounts DiscountRepository,
	orders OrderRepository,
	coordinator Coordinator,
	gateway PaymentGateway,
	db TxBeginner,
	clock clock.Clock,
) CheckoutCommands {
	return &checkoutCommandsImpl{
		cartRepo:    cartRepo,
		inventory:   inventory,
		discounts:   discounts,
		orders:      orders,
		coordinator: coordinator,
		gateway:     gateway,
		db:          db,
		clock:       clock,
	}
}

// Checkout drives the whole reservation saga. The conditional open -> checked_out
// transition is the single-writer gate: concurrent checkouts of the same cart
// race on that one UPDATE and exactly one proceeds. Every failure after the
// gate compensates what was acquired and reverts the cart to open.
func (r *checkoutCommandsImpl) Checkout(ctx context.Context, storeID, cartID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	won, err := r.cartRepo.MarkCheckedOut(ctx, r.db, storeID, cartID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if !won {
		// Distinguish a missing cart from one that is simply not open.
		if _, err := r.cartRepo.FindByID(ctx, r.db, storeID, cartID); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, errs.Mark(err, ErrCartNotFound)
			}
			return nil, errs.Mark(err, ErrDatabaseOperation)
		}
		return nil, ErrCartNotOpen
	}

	view, err := r.cartRepo.FindByID(ctx, r.db, storeID, cartID)
	if err != nil {
		r.revertToOpen(ctx, cartID)
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	if view.ExpiresAt.Before(r.clock.Now()) {
		r.revertToOpen(ctx, cartID)
		return nil, ErrCartExpired
	}

	items, err := r.cartRepo.ItemsByCartID(ctx, r.db, cartID)
	if err != nil {
		r.revertToOpen(ctx, cartID)
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}
	if len(items) == 0 {
		r.revertToOpen(ctx, cartID)
		return nil, ErrEmptyCart
	}
	view.Items = items
	view.SubtotalCents = subtotalOf(items)

	held, d, err := r.coordinator.Reserve(ctx, view, items)
	if err != nil {
		r.revertToOpen(ctx, cartID)
		return nil, err
	}

	session, err := r.gateway.CreateSession(ctx, r.buildSessionParams(view, d, held, input))
	if err != nil {
		r.coordinator.Release(ctx, held)
		r.revertToOpen(ctx, cartID)
		return nil, errs.Mark(err, ErrPaymentGateway)
	}

	if err := r.cartRepo.SetPaymentSession(ctx, r.db, cartID, session.ID, held.DiscountAmountCents); err != nil {
		r.coordinator.Release(ctx, held)
		r.revertToOpen(ctx, cartID)
		return nil, errs.Mark(err, ErrDatabaseOperation)
	}

	r.cacheGatewayCoupon(ctx, d, held, session)

	slog.Info("checkout session created",
		"store_id", storeID, "cart_id", cartID, "session_id", session.ID)

	return &CheckoutResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// FinalizePaymentSession records the order and commits every reserved counter
// after payment succeeds. The order row's unique session reference makes this
// safe to deliver more than once: the loser of the insert race does nothing.
func (r *checkoutCommandsImpl) FinalizePaymentSession(ctx context.Context, sessionRef string) error {
	view, err := r.cartRepo.FindByPaymentSessionRef(ctx, r.db, sessionRef)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, ErrCartNotFound)
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	items, err := r.cartRepo.ItemsByCartID(ctx, r.db, view.ID)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	totals := cartTotals(items, view.DiscountAmountCents)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !isTxClosed(rollbackErr) {
			slog.Warn("failed to rollback transaction", "error", rollbackErr.Error())
		}
	}()

	created, err := r.orders.Create(ctx, tx, OrderParams{
		StoreID:           view.StoreID,
		CartID:            view.ID,
		CustomerEmail:     view.CustomerEmail,
		Currency:          view.Currency,
		SubtotalCents:     totals.SubtotalCents,
		DiscountCents:     totals.DiscountCents,
		TotalCents:        totals.TotalCents,
		DiscountID:        view.DiscountID,
		PaymentSessionRef: sessionRef,
	})
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}
	if !created {
		slog.Info("payment session already finalized", "session_ref", sessionRef)
		return nil
	}

	for _, item := range items {
		if err := r.inventory.Commit(ctx, tx, view.StoreID, item.SKU, item.Quantity); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
	}

	if view.DiscountID != nil {
		if err := r.discounts.RecordUsage(ctx, tx, *view.DiscountID, view.CustomerEmail); err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
	}

	// Terminal transition: a completed cart's reservations are consumed, so
	// the expiry sweep must never release them again.
	if err := r.cartRepo.MarkCompleted(ctx, tx, view.ID); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	slog.Info("payment session finalized",
		"store_id", view.StoreID, "cart_id", view.ID, "session_ref", sessionRef)
	return nil
}

// ReleaseCartReservations abandons a checked-out cart whose payment never
// completed: inventory holds and the usage slot go back, and the cart is
// marked expired. Intended for session-expiry webhooks and reaper jobs.
func (r *checkoutCommandsImpl) ReleaseCartReservations(ctx context.Context, storeID, cartID uuid.UUID) error {
	view, err := r.cartRepo.FindByID(ctx, r.db, storeID, cartID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, ErrCartNotFound)
		}
		return errs.Mark(err, ErrDatabaseOperation)
	}

	// A completed cart already had its reservations consumed by finalization;
	// releasing them again would return units that belong to other carts.
	if cart.Status(view.Status) == cart.StatusCompleted {
		return nil
	}

	if cart.Status(view.Status) == cart.StatusCheckedOut {
		items, err := r.cartRepo.ItemsByCartID(ctx, r.db, cartID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperation)
		}
		held := &HeldReservation{StoreID: storeID, DiscountID: view.DiscountID}
		for _, item := range items {
			held.Items = append(held.Items, ReservedLine{SKU: item.SKU, Quantity: item.Quantity})
		}
		r.coordinator.Release(ctx, held)
	}

	if err := r.cartRepo.MarkExpired(ctx, r.db, storeID, cartID); err != nil {
		return errs.Mark(err, ErrDatabaseOperation)
	}

	slog.Info("cart reservations released", "store_id", storeID, "cart_id", cartID)
	return nil
}

func (r *checkoutCommandsImpl) buildSessionParams(view *queries.CartView, d *discount.Discount, held *HeldReservation, input CheckoutInput) CreateSessionParams {
	params := CreateSessionParams{
		StoreID:           view.StoreID,
		CartID:            view.ID,
		CustomerEmail:     view.CustomerEmail,
		Currency:          view.Currency,
		SuccessURL:        input.SuccessURL,
		CancelURL:         input.CancelURL,
		CollectShipping:   input.CollectShipping,
		ShippingCountries: input.ShippingCountries,
		ShippingOptions:   input.ShippingOptions,
	}
	for _, item := range view.Items {
		params.Lines = append(params.Lines, PaymentLine{
			SKU:            item.SKU,
			Title:          item.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	if d == nil || held.DiscountAmountCents <= 0 {
		return params
	}

	// A persisted gateway coupon is reused only when it still renders the
	// exact computed amount. A capped percentage or a clamped fixed amount
	// has no stable gateway equivalent, so those get a one-time coupon.
	if couponID := d.StripeCouponID(); couponID != nil &&
		!d.RequiresFreshGatewayCoupon() &&
		(d.DiscountType() != discount.TypeFixedAmount || held.DiscountAmountCents == d.Value()) {
		params.CouponID = couponID
		return params
	}

	amount := held.DiscountAmountCents
	params.AmountOffCents = &amount
	return params
}

// cacheGatewayCoupon persists a freshly synthesized gateway coupon when the
// discount's representation is stable across carts: a fixed amount that was
// not clamped. Percentage coupons are only reused when seeded merchant-side,
// and clamped or capped amounts depend on the subtotal.
func (r *checkoutCommandsImpl) cacheGatewayCoupon(ctx context.Context, d *discount.Discount, held *HeldReservation, session *PaymentSession) {
	if d == nil || session.CouponID == "" || d.StripeCouponID() != nil {
		return
	}
	if d.DiscountType() != discount.TypeFixedAmount || held.DiscountAmountCents != d.Value() {
		return
	}
	if err := r.discounts.SetStripeCoupon(ctx, d.ID(), session.CouponID); err != nil {
		slog.Warn("failed to cache gateway coupon",
			"discount_id", d.ID(), "coupon_id", session.CouponID, "error", err.Error())
	}
}

func (r *checkoutCommandsImpl) revertToOpen(ctx context.Context, cartID uuid.UUID) {
	if err := r.cartRepo.RevertToOpen(ctx, r.db, cartID); err != nil {
		slog.Error("failed to revert cart to open", "cart_id", cartID, "error", err.Error())
	}
}

func subtotalOf(items []queries.CartItemView) int64 {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}
	return subtotal
}

func cartTotals(items []queries.CartItemView, discountCents int64) cart.Totals {
	domainItems := make([]cart.Item, 0, len(items))
	for _, it := range items {
		domainItems = append(domainItems, cart.Item{
			SKU:            it.SKU,
			Title:          it.Title,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return cart.ComputeTotals(domainItems, discountCents)
}
