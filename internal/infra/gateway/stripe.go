package gateway

import (
	"context"
	"log/slog"

	"shopkit/internal/infra"
	"shopkit/internal/pkg/config"
	"shopkit/internal/usecase/commands"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeGateway adapts Stripe Checkout to the payment-gateway port. Line
// items are always priced from the cart's snapshots; the merchant-side
// discount amount is authoritative, Stripe only renders it.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateSession(ctx context.Context, params commands.CreateSessionParams) (*commands.PaymentSession, error) {
	couponID, err := g.resolveCoupon(ctx, params)
	if err != nil {
		return nil, err
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(params.SuccessURL),
		CancelURL:     stripe.String(params.CancelURL),
		CustomerEmail: stripe.String(params.CustomerEmail),
	}
	sessionParams.Context = ctx

	for _, line := range params.Lines {
		sessionParams.LineItems = append(sessionParams.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(line.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(params.Currency),
				UnitAmount: stripe.Int64(line.UnitPriceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Title),
				},
			},
		})
	}

	if couponID != "" {
		sessionParams.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(couponID)},
		}
	}

	if params.CollectShipping && len(params.ShippingCountries) > 0 {
		sessionParams.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(params.ShippingCountries),
		}
	}
	for _, opt := range params.ShippingOptions {
		sessionParams.ShippingOptions = append(sessionParams.ShippingOptions, &stripe.CheckoutSessionShippingOptionParams{
			ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
				DisplayName: stripe.String(opt.Label),
				Type:        stripe.String("fixed_amount"),
				FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
					Amount:   stripe.Int64(opt.AmountCents),
					Currency: stripe.String(params.Currency),
				},
			},
		})
	}

	sessionParams.AddMetadata("store_id", params.StoreID.String())
	sessionParams.AddMetadata("cart_id", params.CartID.String())

	sess, err := g.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		slog.Error("stripe session creation failed", "cart_id", params.CartID, "error", err.Error())
		return nil, infra.WrapRepoErr("stripe session creation failed", err)
	}

	return &commands.PaymentSession{
		ID:       sess.ID,
		URL:      sess.URL,
		CouponID: couponID,
	}, nil
}

// resolveCoupon reuses the persisted gateway coupon when the orchestrator
// says it is still exact, and otherwise synthesizes a one-time amount-off
// coupon sized to the already-computed discount. Stripe never recomputes a
// percentage itself: a capped percentage has no gateway-side equivalent.
func (g *StripeGateway) resolveCoupon(ctx context.Context, params commands.CreateSessionParams) (string, error) {
	if params.CouponID != nil {
		return *params.CouponID, nil
	}
	if params.AmountOffCents == nil || *params.AmountOffCents <= 0 {
		return "", nil
	}

	couponParams := &stripe.CouponParams{
		AmountOff: stripe.Int64(*params.AmountOffCents),
		Currency:  stripe.String(params.Currency),
		Duration:  stripe.String(string(stripe.CouponDurationOnce)),
		Name:      stripe.String("Discount"),
	}
	couponParams.Context = ctx
	couponParams.AddMetadata("cart_id", params.CartID.String())

	coupon, err := g.api.Coupons.New(couponParams)
	if err != nil {
		slog.Error("stripe coupon synthesis failed", "cart_id", params.CartID, "error", err.Error())
		return "", infra.WrapRepoErr("stripe coupon synthesis failed", err)
	}
	return coupon.ID, nil
}
