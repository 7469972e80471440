package builder

import (
	"time"

	"shopkit/internal/domain/discount"
	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
)

type DiscountBuilder struct {
	id                    uuid.UUID
	storeID               uuid.UUID
	code                  *string
	discountType          discount.Type
	value                 int64
	status                discount.Status
	minPurchaseCents      int64
	maxDiscountCents      *int64
	startsAt              *time.Time
	expiresAt             *time.Time
	usageLimit            *int32
	usageLimitPerCustomer *int32
	usageCount            int32
	stripeCouponID        *string
}

func NewDiscountBuilder() *DiscountBuilder {
	code := "save10"
	return &DiscountBuilder{
		id:           uuid.New(),
		storeID:      uuid.New(),
		code:         &code,
		discountType: discount.TypePercentage,
		value:        10,
		status:       discount.StatusActive,
	}
}

func (b *DiscountBuilder) WithID(id uuid.UUID) *DiscountBuilder {
	b.id = id
	return b
}

func (b *DiscountBuilder) WithStoreID(id uuid.UUID) *DiscountBuilder {
	b.storeID = id
	return b
}

func (b *DiscountBuilder) WithCode(code string) *DiscountBuilder {
	b.code = &code
	return b
}

func (b *DiscountBuilder) WithType(t discount.Type, value int64) *DiscountBuilder {
	b.discountType = t
	b.value = value
	return b
}

func (b *DiscountBuilder) WithStatus(s discount.Status) *DiscountBuilder {
	b.status = s
	return b
}

func (b *DiscountBuilder) WithMinPurchase(cents int64) *DiscountBuilder {
	b.minPurchaseCents = cents
	return b
}

func (b *DiscountBuilder) WithMaxDiscount(cents int64) *DiscountBuilder {
	b.maxDiscountCents = &cents
	return b
}

func (b *DiscountBuilder) WithWindow(startsAt, expiresAt *time.Time) *DiscountBuilder {
	b.startsAt = startsAt
	b.expiresAt = expiresAt
	return b
}

func (b *DiscountBuilder) WithUsageLimit(limit int32) *DiscountBuilder {
	b.usageLimit = &limit
	return b
}

func (b *DiscountBuilder) WithUsageLimitPerCustomer(limit int32) *DiscountBuilder {
	b.usageLimitPerCustomer = &limit
	return b
}

func (b *DiscountBuilder) WithUsageCount(count int32) *DiscountBuilder {
	b.usageCount = count
	return b
}

func (b *DiscountBuilder) WithStripeCouponID(id string) *DiscountBuilder {
	b.stripeCouponID = &id
	return b
}

func (b *DiscountBuilder) BuildView() queries.DiscountView {
	return queries.DiscountView{
		ID:                    b.id,
		StoreID:               b.storeID,
		Code:                  b.code,
		Type:                  string(b.discountType),
		Value:                 b.value,
		Status:                string(b.status),
		MinPurchaseCents:      b.minPurchaseCents,
		MaxDiscountCents:      b.maxDiscountCents,
		StartsAt:              b.startsAt,
		ExpiresAt:             b.expiresAt,
		UsageLimit:            b.usageLimit,
		UsageLimitPerCustomer: b.usageLimitPerCustomer,
		UsageCount:            b.usageCount,
		StripeCouponID:        b.stripeCouponID,
	}
}

func (b *DiscountBuilder) BuildDomain() *discount.Discount {
	return discount.ReconstructDiscount(
		b.id,
		b.storeID,
		b.code,
		b.discountType,
		b.value,
		b.status,
		b.minPurchaseCents,
		b.maxDiscountCents,
		b.startsAt,
		b.expiresAt,
		b.usageLimit,
		b.usageLimitPerCustomer,
		b.usageCount,
		b.stripeCouponID,
		nil,
	)
}
