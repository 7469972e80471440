package discount

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInactive             = errors.New("discount is not active")
	ErrNotYetStarted        = errors.New("discount is not yet active")
	ErrExpired              = errors.New("discount has expired")
	ErrMinPurchaseNotMet    = errors.New("order subtotal below minimum purchase")
	ErrUsageLimitReached    = errors.New("discount usage limit reached")
	ErrCustomerLimitReached = errors.New("customer usage limit reached")
	ErrInvalidValue         = errors.New("invalid discount value")
)

type Discount struct {
	id                    uuid.UUID
	storeID               uuid.UUID
	code                  *string
	discountType          Type
	value                 int64
	status                Status
	minPurchaseCents      int64
	maxDiscountCents      *int64
	startsAt              *time.Time
	expiresAt             *time.Time
	usageLimit            *int32
	usageLimitPerCustomer *int32
	usageCount            int32
	stripeCouponID        *string
	stripePromotionID     *string
}

func NewDiscount(
	storeID uuid.UUID,
	code *string,
	discountType Type,
	value int64,
	minPurchaseCents int64,
	maxDiscountCents *int64,
	startsAt, expiresAt *time.Time,
	usageLimit, usageLimitPerCustomer *int32,
) (*Discount, error) {
	if value <= 0 {
		return nil, ErrInvalidValue
	}
	if discountType == TypePercentage && value > 100 {
		return nil, ErrInvalidValue
	}
	if code != nil {
		normalized := NormalizeCode(*code)
		code = &normalized
	}
	return &Discount{
		id:                    uuid.New(),
		storeID:               storeID,
		code:                  code,
		discountType:          discountType,
		value:                 value,
		status:                StatusActive,
		minPurchaseCents:      minPurchaseCents,
		maxDiscountCents:      maxDiscountCents,
		startsAt:              startsAt,
		expiresAt:             expiresAt,
		usageLimit:            usageLimit,
		usageLimitPerCustomer: usageLimitPerCustomer,
	}, nil
}

func ReconstructDiscount(
	id, storeID uuid.UUID,
	code *string,
	discountType Type,
	value int64,
	status Status,
	minPurchaseCents int64,
	maxDiscountCents *int64,
	startsAt, expiresAt *time.Time,
	usageLimit, usageLimitPerCustomer *int32,
	usageCount int32,
	stripeCouponID, stripePromotionID *string,
) *Discount {
	return &Discount{
		id:                    id,
		storeID:               storeID,
		code:                  code,
		discountType:          discountType,
		value:                 value,
		status:                status,
		minPurchaseCents:      minPurchaseCents,
		maxDiscountCents:      maxDiscountCents,
		startsAt:              startsAt,
		expiresAt:             expiresAt,
		usageLimit:            usageLimit,
		usageLimitPerCustomer: usageLimitPerCustomer,
		usageCount:            usageCount,
		stripeCouponID:        stripeCouponID,
		stripePromotionID:     stripePromotionID,
	}
}

func (d *Discount) IsWithinWindow(now time.Time) bool {
	if d.startsAt != nil && now.Before(*d.startsAt) {
		return false
	}
	if d.expiresAt != nil && now.After(*d.expiresAt) {
		return false
	}
	return true
}

// Validate is the non-binding evaluator: it never mutates. customerUsed is
// the customer's historical redemption count, nil when no customer context is
// available.
func (d *Discount) Validate(subtotalCents int64, customerUsed *int32, now time.Time) error {
	if d.status != StatusActive {
		return ErrInactive
	}
	if d.startsAt != nil && now.Before(*d.startsAt) {
		return ErrNotYetStarted
	}
	if d.expiresAt != nil && now.After(*d.expiresAt) {
		return ErrExpired
	}
	if subtotalCents < d.minPurchaseCents {
		return ErrMinPurchaseNotMet
	}
	if d.usageLimit != nil && d.usageCount >= *d.usageLimit {
		return ErrUsageLimitReached
	}
	if d.usageLimitPerCustomer != nil && customerUsed != nil && *customerUsed >= *d.usageLimitPerCustomer {
		return ErrCustomerLimitReached
	}
	return nil
}

// Calculate is pure: percentage discounts floor and are capped, fixed amounts
// never exceed the subtotal.
func (d *Discount) Calculate(subtotalCents int64) int64 {
	switch d.discountType {
	case TypePercentage:
		amount := subtotalCents * d.value / 100
		if d.maxDiscountCents != nil && amount > *d.maxDiscountCents {
			amount = *d.maxDiscountCents
		}
		return amount
	case TypeFixedAmount:
		if d.value > subtotalCents {
			return subtotalCents
		}
		return d.value
	}
	return 0
}

// RequiresFreshGatewayCoupon reports whether the external representation of
// this discount depends on the order subtotal. A capped percentage cannot be
// expressed as a reusable gateway coupon: the gateway has no concept of the
// cap, so the amount must be synthesized per checkout.
func (d *Discount) RequiresFreshGatewayCoupon() bool {
	return d.discountType == TypePercentage && d.maxDiscountCents != nil
}

func (d *Discount) ID() uuid.UUID                  { return d.id }
func (d *Discount) StoreID() uuid.UUID             { return d.storeID }
func (d *Discount) Code() *string                  { return d.code }
func (d *Discount) DiscountType() Type             { return d.discountType }
func (d *Discount) Value() int64                   { return d.value }
func (d *Discount) Status() Status                 { return d.status }
func (d *Discount) MinPurchaseCents() int64        { return d.minPurchaseCents }
func (d *Discount) MaxDiscountCents() *int64       { return d.maxDiscountCents }
func (d *Discount) StartsAt() *time.Time           { return d.startsAt }
func (d *Discount) ExpiresAt() *time.Time          { return d.expiresAt }
func (d *Discount) UsageLimit() *int32             { return d.usageLimit }
func (d *Discount) UsageLimitPerCustomer() *int32  { return d.usageLimitPerCustomer }
func (d *Discount) UsageCount() int32              { return d.usageCount }
func (d *Discount) StripeCouponID() *string        { return d.stripeCouponID }
func (d *Discount) StripePromotionID() *string     { return d.stripePromotionID }
