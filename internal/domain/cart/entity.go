package cart

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrCartNotOpen = errors.New("cart is not open")

const DefaultTTL = 30 * time.Minute

type Cart struct {
	id                  uuid.UUID
	storeID             uuid.UUID
	customerEmail       Email
	currency            string
	status              Status
	discountID          *uuid.UUID
	discountAmountCents int64
	paymentSessionRef   *string
	expiresAt           time.Time
	createdAt           time.Time
	updatedAt           time.Time
}

func NewCart(storeID uuid.UUID, email Email, currency string, now time.Time) *Cart {
	if currency == "" {
		currency = "usd"
	}
	return &Cart{
		id:            uuid.New(),
		storeID:       storeID,
		customerEmail: email,
		currency:      currency,
		status:        StatusOpen,
		expiresAt:     now.Add(DefaultTTL),
	}
}

func ReconstructCart(
	id, storeID uuid.UUID,
	email Email,
	currency string,
	status Status,
	discountID *uuid.UUID,
	discountAmountCents int64,
	paymentSessionRef *string,
	expiresAt, createdAt, updatedAt time.Time,
) *Cart {
	return &Cart{
		id:                  id,
		storeID:             storeID,
		customerEmail:       email,
		currency:            currency,
		status:              status,
		discountID:          discountID,
		discountAmountCents: discountAmountCents,
		paymentSessionRef:   paymentSessionRef,
		expiresAt:           expiresAt,
		createdAt:           createdAt,
		updatedAt:           updatedAt,
	}
}

// CanModify guards every line-item and discount mutation: only open carts may
// change.
func (c *Cart) CanModify() error {
	if c.status != StatusOpen {
		return ErrCartNotOpen
	}
	return nil
}

func (c *Cart) IsOpen() bool {
	return c.status == StatusOpen
}

func (c *Cart) IsCheckedOut() bool {
	return c.status == StatusCheckedOut
}

func (c *Cart) HasExpired(now time.Time) bool {
	return now.After(c.expiresAt)
}

func (c *Cart) HasDiscount() bool {
	return c.discountID != nil
}

func (c *Cart) ID() uuid.UUID              { return c.id }
func (c *Cart) StoreID() uuid.UUID         { return c.storeID }
func (c *Cart) CustomerEmail() Email       { return c.customerEmail }
func (c *Cart) Currency() string           { return c.currency }
func (c *Cart) Status() Status             { return c.status }
func (c *Cart) DiscountID() *uuid.UUID     { return c.discountID }
func (c *Cart) DiscountAmountCents() int64 { return c.discountAmountCents }
func (c *Cart) PaymentSessionRef() *string { return c.paymentSessionRef }
func (c *Cart) ExpiresAt() time.Time       { return c.expiresAt }
func (c *Cart) CreatedAt() time.Time       { return c.createdAt }
func (c *Cart) UpdatedAt() time.Time       { return c.updatedAt }
