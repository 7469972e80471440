package response

import (
	"log/slog"
	"time"

	"shopkit/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CartItemResponse struct {
	ID             uuid.UUID `json:"id"`
	SKU            string    `json:"sku"`
	Title          string    `json:"title"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
}

type CartResponse struct {
	ID                  uuid.UUID          `json:"id"`
	CustomerEmail       string             `json:"customerEmail"`
	Currency            string             `json:"currency"`
	Status              string             `json:"status"`
	Items               []CartItemResponse `json:"items"`
	SubtotalCents       int64              `json:"subtotalCents"`
	DiscountCode        *string            `json:"discountCode,omitempty"`
	DiscountAmountCents int64              `json:"discountAmountCents"`
	TotalCents          int64              `json:"totalCents"`
	ExpiresAt           time.Time          `json:"expiresAt"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func FromCartView(view *queries.CartView) *CartResponse {
	var resp CartResponse
	if err := copier.Copy(&resp, view); err != nil {
		slog.Error("failed to copy cart view", "error", err.Error())
	}
	if resp.Items == nil {
		resp.Items = []CartItemResponse{}
	}
	return &resp
}
