package commands

import (
	"context"
	"time"

	"shopkit/internal/domain/cart"
	"shopkit/internal/infra/db"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner is the slice of *pgxpool.Pool the command layer needs: plain
// statement execution plus the ability to open a transaction.
type TxBeginner interface {
	db.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CartRepository is the write side of the cart aggregate. Methods take a DBTX
// so multi-statement operations can share one transaction.
type CartRepository interface {
	Create(ctx context.Context, tx db.DBTX, c *cart.Cart) error
	FindByID(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) (*queries.CartView, error)
	FindByPaymentSessionRef(ctx context.Context, tx db.DBTX, sessionRef string) (*queries.CartView, error)
	ItemsByCartID(ctx context.Context, tx db.DBTX, cartID uuid.UUID) ([]queries.CartItemView, error)
	ReplaceItems(ctx context.Context, tx db.DBTX, cartID uuid.UUID, items []cart.Item) error
	MarkCheckedOut(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error
	RevertToOpen(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error
	MarkExpired(ctx context.Context, tx db.DBTX, storeID, cartID uuid.UUID) error
	AttachDiscount(ctx context.Context, tx db.DBTX, cartID, discountID uuid.UUID, amountCents int64) error
	DetachDiscount(ctx context.Context, tx db.DBTX, cartID uuid.UUID) error
	SetPaymentSession(ctx context.Context, tx db.DBTX, cartID uuid.UUID, sessionRef string, discountAmountCents int64) error
}

// InventoryLedger mutates per-SKU counters exclusively through conditional
// writes; callers branch on the boolean, never on a prior read.
type InventoryLedger interface {
	TryReserve(ctx context.Context, storeID uuid.UUID, sku string, qty int32) (bool, error)
	Release(ctx context.Context, storeID uuid.UUID, sku string, qty int32) error
	Commit(ctx context.Context, tx db.DBTX, storeID uuid.UUID, sku string, qty int32) error
	Adjust(ctx context.Context, storeID uuid.UUID, sku string, delta int32) error
	AvailableBySKUs(ctx context.Context, storeID uuid.UUID, skus []string) (map[string]queries.SKUAvailability, error)
}

// DiscountRepository covers both discount lookup and the usage ledger.
type DiscountRepository interface {
	FindByCode(ctx context.Context, storeID uuid.UUID, code string) (*queries.DiscountView, error)
	FindByID(ctx context.Context, storeID, discountID uuid.UUID) (*queries.DiscountView, error)
	ReserveUsage(ctx context.Context, discountID uuid.UUID, now time.Time) (bool, error)
	ReleaseUsage(ctx context.Context, discountID uuid.UUID) error
	CustomerUsageCount(ctx context.Context, discountID uuid.UUID, customerEmail string) (int32, error)
	RecordUsage(ctx context.Context, tx db.DBTX, discountID uuid.UUID, customerEmail string) error
	SetStripeCoupon(ctx context.Context, discountID uuid.UUID, couponID string) error
}

type OrderRepository interface {
	Create(ctx context.Context, tx db.DBTX, params OrderParams) (bool, error)
}

type OrderParams struct {
	StoreID           uuid.UUID
	CartID            uuid.UUID
	CustomerEmail     string
	Currency          string
	SubtotalCents     int64
	DiscountCents     int64
	TotalCents        int64
	DiscountID        *uuid.UUID
	PaymentSessionRef string
}

// PaymentGateway is the outbound payment-session contract. Exactly one of
// CouponID (reuse a persisted gateway coupon) and AmountOffCents (synthesize
// a one-time coupon for the already-computed amount) is set when a discount
// applies.
type PaymentGateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*PaymentSession, error)
}

type CreateSessionParams struct {
	StoreID           uuid.UUID
	CartID            uuid.UUID
	CustomerEmail     string
	Currency          string
	Lines             []PaymentLine
	CouponID          *string
	AmountOffCents    *int64
	SuccessURL        string
	CancelURL         string
	CollectShipping   bool
	ShippingCountries []string
	ShippingOptions   []ShippingOption
}

type PaymentLine struct {
	SKU            string
	Title          string
	Quantity       int32
	UnitPriceCents int64
}

type ShippingOption struct {
	Label       string
	AmountCents int64
}

// PaymentSession reports the created session plus the gateway coupon that
// ended up attached to it, if any, so the caller can cache a reusable one.
type PaymentSession struct {
	ID       string
	URL      string
	CouponID string
}
