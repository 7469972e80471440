package response

type CheckoutResponse struct {
	SessionID   string `json:"sessionId"`
	CheckoutURL string `json:"checkoutUrl"`
}

type SKUAvailabilityResponse struct {
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Active         bool   `json:"active"`
	Available      int32  `json:"available"`
}
