package repository

import (
	"context"
	"time"

	"shopkit/internal/domain/discount"
	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/pkg/pgconv"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

type DiscountRepository struct {
	db db.DBTX
}

func NewDiscountRepository(dbtx db.DBTX) *DiscountRepository {
	return &DiscountRepository{db: dbtx}
}

const selectDiscountColumns = `
SELECT id, store_id, code, discount_type, value, status, min_purchase_cents,
       max_discount_cents, starts_at, expires_at, usage_limit,
       usage_limit_per_customer, usage_count, stripe_coupon_id,
       stripe_promotion_id, created_at, updated_at
FROM discounts
`

const selectDiscountByCodeSQL = selectDiscountColumns + `
WHERE store_id = $1 AND code = $2
`

func (r *DiscountRepository) FindByCode(ctx context.Context, storeID uuid.UUID, code string) (*queries.DiscountView, error) {
	row := r.db.QueryRow(ctx, selectDiscountByCodeSQL, storeID, discount.NormalizeCode(code))
	return scanDiscount(row, "discount not found by code")
}

const selectDiscountByIDSQL = selectDiscountColumns + `
WHERE store_id = $1 AND id = $2
`

func (r *DiscountRepository) FindByID(ctx context.Context, storeID, discountID uuid.UUID) (*queries.DiscountView, error) {
	row := r.db.QueryRow(ctx, selectDiscountByIDSQL, storeID, discountID)
	return scanDiscount(row, "discount not found by ID")
}

const reserveUsageSQL = `
UPDATE discounts
SET usage_count = usage_count + (CASE WHEN usage_limit IS NULL THEN 0 ELSE 1 END),
    updated_at = now()
WHERE id = $1
  AND status = 'active'
  AND (starts_at IS NULL OR starts_at <= $2)
  AND (expires_at IS NULL OR expires_at >= $2)
  AND (usage_limit IS NULL OR usage_count < usage_limit)
`

// ReserveUsage is the usage-slot CAS: validity predicates and the increment
// run in one statement, so two checkouts racing past a prior read cannot both
// take the last slot. Discounts without a limit still pass through the same
// predicates as a validity touch, without incrementing.
func (r *DiscountRepository) ReserveUsage(ctx context.Context, discountID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, reserveUsageSQL, discountID, now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to reserve discount usage", err)
	}
	return tag.RowsAffected() == 1, nil
}

const releaseUsageSQL = `
UPDATE discounts
SET usage_count = GREATEST(usage_count - (CASE WHEN usage_limit IS NULL THEN 0 ELSE 1 END), 0),
    updated_at = now()
WHERE id = $1
`

func (r *DiscountRepository) ReleaseUsage(ctx context.Context, discountID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, releaseUsageSQL, discountID); err != nil {
		return infra.WrapRepoErr("failed to release discount usage", err)
	}
	return nil
}

const customerUsageCountSQL = `
SELECT COUNT(*) FROM discount_usages
WHERE discount_id = $1 AND customer_email = $2
`

// CustomerUsageCount reads the historical usage table; it backs the
// per-customer pre-check only, never the global limit.
func (r *DiscountRepository) CustomerUsageCount(ctx context.Context, discountID uuid.UUID, customerEmail string) (int32, error) {
	var count int32
	err := r.db.QueryRow(ctx, customerUsageCountSQL, discountID, customerEmail).Scan(&count)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to count customer discount usage", err)
	}
	return count, nil
}

const insertUsageSQL = `
INSERT INTO discount_usages (id, discount_id, customer_email)
VALUES ($1, $2, $3)
`

// RecordUsage is written at order finalization, alongside the inventory
// commit.
func (r *DiscountRepository) RecordUsage(ctx context.Context, tx db.DBTX, discountID uuid.UUID, customerEmail string) error {
	if _, err := tx.Exec(ctx, insertUsageSQL, uuid.New(), discountID, customerEmail); err != nil {
		return infra.WrapRepoErr("failed to record discount usage", err)
	}
	return nil
}

const setStripeCouponSQL = `
UPDATE discounts
SET stripe_coupon_id = $2, updated_at = now()
WHERE id = $1
`

// SetStripeCoupon persists a gateway coupon reference for reuse on later
// checkouts. Advisory only: checkout falls back to synthesis when absent.
func (r *DiscountRepository) SetStripeCoupon(ctx context.Context, discountID uuid.UUID, couponID string) error {
	if _, err := r.db.Exec(ctx, setStripeCouponSQL, discountID, couponID); err != nil {
		return infra.WrapRepoErr("failed to store gateway coupon reference", err)
	}
	return nil
}

type discountRow interface {
	Scan(dest ...any) error
}

func scanDiscount(row discountRow, notFoundMsg string) (*queries.DiscountView, error) {
	var v queries.DiscountView
	err := row.Scan(
		&v.ID, &v.StoreID, &v.Code, &v.Type, &v.Value, &v.Status,
		&v.MinPurchaseCents, &v.MaxDiscountCents, &v.StartsAt, &v.ExpiresAt,
		&v.UsageLimit, &v.UsageLimitPerCustomer, &v.UsageCount,
		&v.StripeCouponID, &v.StripePromotionID, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(notFoundMsg, err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan discount", err)
	}
	return &v, nil
}
