package request

type ShippingOptionRequest struct {
	Label       string `json:"label" binding:"required"`
	AmountCents int64  `json:"amountCents" binding:"min=0"`
}

type CheckoutRequest struct {
	SuccessURL        string                  `json:"successUrl" binding:"required,url"`
	CancelURL         string                  `json:"cancelUrl" binding:"required,url"`
	CollectShipping   bool                    `json:"collectShipping"`
	ShippingCountries []string                `json:"shippingCountries"`
	ShippingOptions   []ShippingOptionRequest `json:"shippingOptions"`
}
