package queries

import (
	"time"

	"github.com/google/uuid"
)

type CartView struct {
	ID                  uuid.UUID
	StoreID             uuid.UUID
	CustomerEmail       string
	Currency            string
	Status              string
	DiscountID          *uuid.UUID
	DiscountCode        *string
	DiscountAmountCents int64
	PaymentSessionRef   *string
	ExpiresAt           time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Items               []CartItemView
	SubtotalCents       int64
	TotalCents          int64
}

type CartItemView struct {
	ID             uuid.UUID
	SKU            string
	Title          string
	Quantity       int32
	UnitPriceCents int64
	LineTotalCents int64
}

type DiscountView struct {
	ID                    uuid.UUID
	StoreID               uuid.UUID
	Code                  *string
	Type                  string
	Value                 int64
	Status                string
	MinPurchaseCents      int64
	MaxDiscountCents      *int64
	StartsAt              *time.Time
	ExpiresAt             *time.Time
	UsageLimit            *int32
	UsageLimitPerCustomer *int32
	UsageCount            int32
	StripeCouponID        *string
	StripePromotionID     *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SKUAvailability is the non-binding stock figure shown before any
// reservation attempt: available = on_hand - reserved at read time.
type SKUAvailability struct {
	SKU            string
	Title          string
	UnitPriceCents int64
	Active         bool
	Available      int32
}
