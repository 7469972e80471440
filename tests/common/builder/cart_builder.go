package builder

import (
	"time"

	"shopkit/internal/domain/cart"

	"github.com/google/uuid"
)

type CartBuilder struct {
	storeID  uuid.UUID
	email    string
	currency string
	now      time.Time
}

func NewCartBuilder() *CartBuilder {
	return &CartBuilder{
		storeID:  uuid.New(),
		email:    "customer@example.com",
		currency: "usd",
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (b *CartBuilder) WithStoreID(id uuid.UUID) *CartBuilder {
	b.storeID = id
	return b
}

func (b *CartBuilder) WithEmail(email string) *CartBuilder {
	b.email = email
	return b
}

func (b *CartBuilder) WithCurrency(currency string) *CartBuilder {
	b.currency = currency
	return b
}

func (b *CartBuilder) WithNow(now time.Time) *CartBuilder {
	b.now = now
	return b
}

func (b *CartBuilder) BuildDomain() (*cart.Cart, error) {
	email, err := cart.NewEmail(b.email)
	if err != nil {
		return nil, err
	}
	return cart.NewCart(b.storeID, email, b.currency, b.now), nil
}
