package request

type CreateCartRequest struct {
	CustomerEmail string `json:"customerEmail" binding:"required"`
}

type ItemLine struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int32  `json:"quantity" binding:"required"`
}

// SetItemsRequest replaces the whole item set; an empty list clears the cart.
type SetItemsRequest struct {
	Items []ItemLine `json:"items"`
}

type ApplyDiscountRequest struct {
	Code string `json:"code" binding:"required"`
}
