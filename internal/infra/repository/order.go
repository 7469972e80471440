package repository

import (
	"context"

	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/usecase/commands"

	"github.com/google/uuid"
)

type OrderRepository struct {
	db db.DBTX
}

func NewOrderRepository(dbtx db.DBTX) *OrderRepository {
	return &OrderRepository{db: dbtx}
}

const insertOrderSQL = `
INSERT INTO orders (id, store_id, cart_id, customer_email, currency,
                    subtotal_cents, discount_cents, total_cents, discount_id,
                    payment_session_ref)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (payment_session_ref) DO NOTHING
`

// Create is the idempotency anchor for payment confirmations: the unique
// session reference makes a duplicate delivery insert zero rows, and the
// caller skips the commit work entirely.
func (r *OrderRepository) Create(ctx context.Context, tx db.DBTX, params commands.OrderParams) (bool, error) {
	tag, err := tx.Exec(ctx, insertOrderSQL,
		uuid.New(), params.StoreID, params.CartID, params.CustomerEmail,
		params.Currency, params.SubtotalCents, params.DiscountCents,
		params.TotalCents, params.DiscountID, params.PaymentSessionRef,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to create order", err)
	}
	return tag.RowsAffected() == 1, nil
}
