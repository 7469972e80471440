package cart

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidPrice    = errors.New("unit price cannot be negative")
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type Email struct {
	value string
}

func NewEmail(s string) (Email, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailRegex.MatchString(s) {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: s}, nil
}

func (e Email) Value() string {
	return e.value
}

// Item is a line-item snapshot: title and unit price are captured at add time
// so later catalog edits do not change an existing cart.
type Item struct {
	SKU            string
	Title          string
	Quantity       int32
	UnitPriceCents int64
}

func NewItem(sku, title string, quantity int32, unitPriceCents int64) (Item, error) {
	if quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if unitPriceCents < 0 {
		return Item{}, ErrInvalidPrice
	}
	return Item{
		SKU:            sku,
		Title:          title,
		Quantity:       quantity,
		UnitPriceCents: unitPriceCents,
	}, nil
}

func (i Item) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

type Totals struct {
	SubtotalCents int64
	DiscountCents int64
	TotalCents    int64
}

// ComputeTotals always works from the live item set, never a cached figure.
func ComputeTotals(items []Item, discountCents int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents()
	}
	if discountCents < 0 {
		discountCents = 0
	}
	if discountCents > subtotal {
		discountCents = subtotal
	}
	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		TotalCents:    subtotal - discountCents,
	}
}
