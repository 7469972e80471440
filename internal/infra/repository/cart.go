package repository

import (
	"context"

	"shopkit/internal/domain/cart"
	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/pkg/pgconv"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

type CartRepository struct {
	db db.DBTX
}

func NewCartRepository(dbtx db.DBTX) *CartRepository {
	return &CartRepository{db: dbtx}
}

const insertCartSQL = `
INSERT INTO carts (id, store_id, customer_email, currency, status, discount_amount_cents, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (r *CartRepository) Create(ctx context.Context, tx db.DBTX, c *cart.Cart) error {
	_, err := tx.Exec(ctx, insertCartSQL,
		c.ID(), c.StoreID(), c.CustomerEmail().Value(), c.Currency(),
		c.Status().String(), c.DiscountAmountCents(), c.ExpiresAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create cart", err)
	}
	return nil
}

const selectCartSQL = `
SELECT id, store_id, customer_email, currency, status, discount_id,
       discount_amount_cents, payment_session_ref, expires_at, created_at, updated_at
FROM carts
WHERE id = $1 AND store_id = $2
`

func (r *CartRepository) FindByID(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	row := tx.QueryRow(ctx, selectCartSQL, cartID, storeID)

	var v queries.CartView
	err := row.Scan(
		&v.ID, &v.StoreID, &v.CustomerEmail, &v.Currency, &v.Status,
		&v.DiscountID, &v.DiscountAmountCents, &v.PaymentSessionRef,
		&v.ExpiresAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("cart not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cart by ID", err)
	}
	return &v, nil
}

const selectCartBySessionSQL = `
SELECT id, store_id, customer_email, currency, status, discount_id,
       discount_amount_cents, payment_session_ref, expires_at, created_at, updated_at
FROM carts
WHERE payment_session_ref = $1
`

func (r *CartRepository) FindByPaymentSessionRef(ctx context.Context, tx db.DBTX, sessionRef string) (*queries.CartView, error) {
	row := tx.QueryRow(ctx, selectCartBySessionSQL, sessionRef)

	var v queries.CartView
	err := row.Scan(
		&v.ID, &v.StoreID, &v.CustomerEmail, &v.Currency, &v.Status,
		&v.DiscountID, &v.DiscountAmountCents, &v.PaymentSessionRef,
		&v.ExpiresAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("cart not found for payment session", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cart by payment session", err)
	}
	return &v, nil
}

const selectCartItemsSQL = `
SELECT id, sku, title, quantity, unit_price_cents
FROM cart_items
WHERE cart_id = $1
ORDER BY position
`

func (r *CartRepository) ItemsByCartID(ctx context.Context, tx db.DBTX, cartID uuid.UUID) ([]queries.CartItemView, error) {
	rows, err := tx.Query(ctx, selectCartItemsSQL, cartID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list cart items", err)
	}
	defer rows.Close()

	var items []queries.CartItemView
	for rows.Next() {
		var it queries.CartItemView
		if err := rows.Scan(&it.ID, &it.SKU, &it.Title, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, infra.WrapRepoErr("failed to scan cart item", err)
		}
		it.LineTotalCents = it.UnitPriceCents * int64(it.Quantity)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate cart items", err)
	}
	return items, nil
}

const deleteCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

const insertCartItemSQL = `
INSERT INTO cart_items (id, cart_id, sku, title, quantity, unit_price_cents, position)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// ReplaceItems swaps the whole item set. Callers run it inside a transaction
// so a failed insert never leaves a half-replaced cart.
func (r *CartRepository) ReplaceItems(ctx context.Context, tx db.DBTX, cartID uuid.UUID, items []cart.Item) error {
	if _, err := tx.Exec(ctx, deleteCartItemsSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to clear cart items", err)
	}
	for i, it := range items {
		_, err := tx.Exec(ctx, insertCartItemSQL,
			uuid.New(), cartID, it.SKU, it.Title, it.Quantity, it.UnitPriceCents, i,
		)
		if err != nil {
			return infra.WrapRepoErr("failed to insert cart item", err)
		}
	}
	return nil
}

const markCheckedOutSQL = `
UPDATE carts
SET status = 'checked_out', updated_at = now()
WHERE id = $1 AND store_id = $2 AND status = 'open'
`

// MarkCheckedOut is the single-writer gate for checkout: the status predicate
// makes two concurrent attempts on one cart resolve to exactly one winner.
func (r *CartRepository) MarkCheckedOut(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, markCheckedOutSQL, cartID, storeID)
	if err != nil {
		return false, infra.WrapRepoErr("failed to mark cart checked out", err)
	}
	return tag.RowsAffected() == 1, nil
}

const revertToOpenSQL = `
UPDATE carts
SET status = 'open', payment_session_ref = NULL, updated_at = now()
WHERE id = $1 AND status = 'checked_out'
`

func (r *CartRepository) RevertToOpen(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, revertToOpenSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to revert cart to open", err)
	}
	return nil
}

const markCompletedSQL = `
UPDATE carts
SET status = 'completed', updated_at = now()
WHERE id = $1 AND status = 'checked_out'
`

// MarkCompleted is the terminal transition written inside the finalization
// transaction. Once a cart is completed its reservations have been consumed,
// so the expiry sweep must never release it again.
func (r *CartRepository) MarkCompleted(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	tag, err := tx.Exec(ctx, markCompletedSQL, cartID)
	if err != nil {
		return infra.WrapRepoErr("failed to mark cart completed", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("cart is not checked out", nil, infra.KindConflict)
	}
	return nil
}

const markExpiredSQL = `
UPDATE carts
SET status = 'expired', updated_at = now()
WHERE id = $1 AND store_id = $2 AND status NOT IN ('expired', 'completed')
`

func (r *CartRepository) MarkExpired(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, markExpiredSQL, cartID, storeID); err != nil {
		return infra.WrapRepoErr("failed to mark cart expired", err)
	}
	return nil
}

const attachDiscountSQL = `
UPDATE carts
SET discount_id = $2, discount_amount_cents = $3, updated_at = now()
WHERE id = $1
`

func (r *CartRepository) AttachDiscount(ctx context.Context, tx db.DBTX, cartID, discountID uuid.UUID, amountCents int64) error {
	if _, err := tx.Exec(ctx, attachDiscountSQL, cartID, discountID, amountCents); err != nil {
		return infra.WrapRepoErr("failed to attach discount", err)
	}
	return nil
}

const detachDiscountSQL = `
UPDATE carts
SET discount_id = NULL, discount_amount_cents = 0, updated_at = now()
WHERE id = $1
`

func (r *CartRepository) DetachDiscount(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error {
	if _, err := tx.Exec(ctx, detachDiscountSQL, cartID); err != nil {
		return infra.WrapRepoErr("failed to detach discount", err)
	}
	return nil
}

const setPaymentSessionSQL = `
UPDATE carts
SET payment_session_ref = $2, discount_amount_cents = $3, updated_at = now()
WHERE id = $1 AND status = 'checked_out'
`

func (r *CartRepository) SetPaymentSession(ctx context.Context, tx db.DBTX, cartID uuid.UUID, sessionRef string, discountAmountCents int64) error {
	tag, err := tx.Exec(ctx, setPaymentSessionSQL, cartID, sessionRef, discountAmountCents)
	if err != nil {
		if pgconv.IsUniqueViolation(err) {
			return infra.WrapRepoErr("payment session already bound to another cart", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to set payment session", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("cart is no longer checked out", nil, infra.KindConflict)
	}
	return nil
}
