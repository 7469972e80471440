//go:build unit

package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"shopkit/internal/domain/discount"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/commands"
	"shopkit/tests/common/builder"
	"shopkit/tests/mock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var checkoutInput = commands.CheckoutInput{
	SuccessURL: "https://shop.example.com/success",
	CancelURL:  "https://shop.example.com/cancel",
}

// checkoutEnv seeds an open cart holding 2x widget (500) + 1x gadget (250).
func checkoutEnv(t *testing.T, storeID uuid.UUID) (*cmdEnv, uuid.UUID) {
	t.Helper()
	env := newCmdEnv()
	env.inventory.put("widget", "Widget", 500, true, 10)
	env.inventory.put("gadget", "Gadget", 250, true, 5)
	cartID := env.newOpenCart(storeID)
	_, err := env.cartCommands().SetItems(context.Background(), storeID, cartID, []commands.ItemInput{
		{SKU: "widget", Quantity: 2},
		{SKU: "gadget", Quantity: 1},
	})
	require.NoError(t, err)
	return env, cartID
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()

	t.Run("happy path reserves, opens a session and pins the reference", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		gw := mock.NewMockPaymentGateway(ctrl)

		var captured commands.CreateSessionParams
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, params commands.CreateSessionParams) (*commands.PaymentSession, error) {
				captured = params
				return &commands.PaymentSession{ID: "cs_test_123", URL: "https://pay.example.com/cs_test_123"}, nil
			})

		result, err := env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)

		require.NoError(t, err)
		assert.Equal(t, "cs_test_123", result.SessionID)
		assert.Equal(t, "https://pay.example.com/cs_test_123", result.CheckoutURL)

		view := env.carts.view(cartID)
		assert.Equal(t, "checked_out", view.Status)
		require.NotNil(t, view.PaymentSessionRef)
		assert.Equal(t, "cs_test_123", *view.PaymentSessionRef)

		_, reservedW := env.inventory.counters("widget")
		_, reservedG := env.inventory.counters("gadget")
		assert.Equal(t, int32(2), reservedW)
		assert.Equal(t, int32(1), reservedG)

		require.Len(t, captured.Lines, 2)
		assert.Equal(t, "Widget", captured.Lines[0].Title)
		assert.Equal(t, int64(500), captured.Lines[0].UnitPriceCents)
		assert.Equal(t, checkoutInput.SuccessURL, captured.SuccessURL)
		assert.Nil(t, captured.CouponID)
		assert.Nil(t, captured.AmountOffCents)
	})

	t.Run("empty cart reverts the gate", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env := newCmdEnv()
		cartID := env.newOpenCart(storeID)
		gw := mock.NewMockPaymentGateway(ctrl)

		_, err := env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)

		assert.ErrorIs(t, err, commands.ErrEmptyCart)
		assert.Equal(t, "open", env.carts.status(cartID))
	})

	t.Run("expired cart reverts the gate", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		env.clock.Add(31 * time.Minute)
		gw := mock.NewMockPaymentGateway(ctrl)

		_, err := env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)

		assert.ErrorIs(t, err, commands.ErrCartExpired)
		assert.Equal(t, "open", env.carts.status(cartID))
	})

	t.Run("missing cart", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env := newCmdEnv()
		gw := mock.NewMockPaymentGateway(ctrl)

		_, err := env.checkoutCommands(gw).Checkout(context.Background(), storeID, uuid.New(), checkoutInput)

		assert.ErrorIs(t, err, commands.ErrCartNotFound)
	})

	t.Run("insufficient stock compensates and reverts", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		// Drain widget availability behind the cart's back.
		ok, err := env.inventory.TryReserve(context.Background(), storeID, "widget", 9)
		require.NoError(t, err)
		require.True(t, ok)
		gw := mock.NewMockPaymentGateway(ctrl)

		_, err = env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)

		assert.ErrorIs(t, err, commands.ErrInsufficientInventory)
		assert.Equal(t, "open", env.carts.status(cartID))
		_, reservedW := env.inventory.counters("widget")
		_, reservedG := env.inventory.counters("gadget")
		assert.Equal(t, int32(9), reservedW)
		assert.Zero(t, reservedG)
	})

	t.Run("gateway failure compensates everything", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).WithUsageLimit(3).BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		gw := mock.NewMockPaymentGateway(ctrl)
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(nil, errs.New("stripe is down"))

		_, err = env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)

		assert.ErrorIs(t, err, commands.ErrPaymentGateway)
		assert.Equal(t, "open", env.carts.status(cartID))
		_, reservedW := env.inventory.counters("widget")
		_, reservedG := env.inventory.counters("gadget")
		assert.Zero(t, reservedW)
		assert.Zero(t, reservedG)
		assert.Zero(t, env.discounts.usageCount(dview.ID))
	})

	t.Run("second checkout of the same cart loses the gate", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		gw := mock.NewMockPaymentGateway(ctrl)
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(
			&commands.PaymentSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil)
		checkout := env.checkoutCommands(gw)

		_, err := checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
		require.NoError(t, err)

		_, err = checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
		assert.ErrorIs(t, err, commands.ErrCartNotOpen)
	})

	t.Run("concurrent checkouts resolve to one winner", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		gw := mock.NewMockPaymentGateway(ctrl)
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(
			&commands.PaymentSession{ID: "cs_race", URL: "https://pay.example.com/cs_race"}, nil).MaxTimes(1)
		checkout := env.checkoutCommands(gw)

		const attempts = 6
		var wg sync.WaitGroup
		results := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
				results[i] = err
			}(i)
		}
		wg.Wait()

		var wins int
		for _, err := range results {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, commands.ErrCartNotOpen)
			}
		}
		assert.Equal(t, 1, wins)
		_, reservedW := env.inventory.counters("widget")
		assert.Equal(t, int32(2), reservedW)
	})
}

func TestCheckout_CouponSelection(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()

	capture := func(t *testing.T, env *cmdEnv, cartID uuid.UUID) commands.CreateSessionParams {
		t.Helper()
		ctrl := gomock.NewController(t)
		gw := mock.NewMockPaymentGateway(ctrl)
		var captured commands.CreateSessionParams
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, params commands.CreateSessionParams) (*commands.PaymentSession, error) {
				captured = params
				return &commands.PaymentSession{ID: "cs_x", URL: "https://pay.example.com/cs_x"}, nil
			})
		_, err := env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)
		require.NoError(t, err)
		return captured
	}

	t.Run("plain percentage reuses the stored gateway coupon", func(t *testing.T) {
		t.Parallel()
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).WithStripeCouponID("coup_10pct").BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		params := capture(t, env, cartID)

		require.NotNil(t, params.CouponID)
		assert.Equal(t, "coup_10pct", *params.CouponID)
		assert.Nil(t, params.AmountOffCents)
	})

	t.Run("capped percentage always gets a fresh amount-off coupon", func(t *testing.T) {
		t.Parallel()
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).
			WithType(discount.TypePercentage, 50).WithMaxDiscount(100).
			WithStripeCouponID("coup_stale").BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		params := capture(t, env, cartID)

		assert.Nil(t, params.CouponID)
		require.NotNil(t, params.AmountOffCents)
		assert.Equal(t, int64(100), *params.AmountOffCents)
	})

	t.Run("clamped fixed amount falls back to amount-off", func(t *testing.T) {
		t.Parallel()
		env, cartID := checkoutEnv(t, storeID)
		// Subtotal is 1250; a 2000-off coupon clamps to 1250.
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).
			WithType(discount.TypeFixedAmount, 2000).
			WithStripeCouponID("coup_2000off").BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		params := capture(t, env, cartID)

		assert.Nil(t, params.CouponID)
		require.NotNil(t, params.AmountOffCents)
		assert.Equal(t, int64(1250), *params.AmountOffCents)
	})

	t.Run("synthesized exact fixed coupon is cached for reuse", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).
			WithType(discount.TypeFixedAmount, 250).BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		gw := mock.NewMockPaymentGateway(ctrl)
		var captured commands.CreateSessionParams
		sessions := []string{"cs_first", "cs_second"}
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, params commands.CreateSessionParams) (*commands.PaymentSession, error) {
				captured = params
				id := sessions[0]
				sessions = sessions[1:]
				return &commands.PaymentSession{
					ID: id, URL: "https://pay.example.com/" + id, CouponID: "coup_minted_250",
				}, nil
			}).Times(2)
		checkout := env.checkoutCommands(gw)

		_, err = checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
		require.NoError(t, err)

		assert.Nil(t, captured.CouponID)
		require.NotNil(t, captured.AmountOffCents)
		assert.Equal(t, int64(250), *captured.AmountOffCents)
		stored := env.discounts.stripeCoupon(dview.ID)
		require.NotNil(t, stored)
		assert.Equal(t, "coup_minted_250", *stored)

		// A later cart with the same discount reuses the cached coupon.
		nextCart := env.newOpenCart(storeID)
		_, err = env.cartCommands().SetItems(context.Background(), storeID, nextCart, []commands.ItemInput{
			{SKU: "widget", Quantity: 1},
		})
		require.NoError(t, err)
		_, err = env.cartCommands().ApplyDiscount(context.Background(), storeID, nextCart, "save10")
		require.NoError(t, err)

		_, err = checkout.Checkout(context.Background(), storeID, nextCart, checkoutInput)
		require.NoError(t, err)
		require.NotNil(t, captured.CouponID)
		assert.Equal(t, "coup_minted_250", *captured.CouponID)
		assert.Nil(t, captured.AmountOffCents)
	})

	t.Run("synthesized percentage coupon is never cached", func(t *testing.T) {
		t.Parallel()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		gw := mock.NewMockPaymentGateway(ctrl)
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(
			&commands.PaymentSession{ID: "cs_x", URL: "https://pay.example.com/cs_x", CouponID: "coup_minted_pct"}, nil)

		_, err = env.checkoutCommands(gw).Checkout(context.Background(), storeID, cartID, checkoutInput)
		require.NoError(t, err)

		assert.Nil(t, env.discounts.stripeCoupon(dview.ID))
	})

	t.Run("exact fixed amount reuses the stored coupon", func(t *testing.T) {
		t.Parallel()
		env, cartID := checkoutEnv(t, storeID)
		dview := builder.NewDiscountBuilder().WithStoreID(storeID).
			WithType(discount.TypeFixedAmount, 250).
			WithStripeCouponID("coup_250off").BuildView()
		env.discounts.put(dview)
		_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
		require.NoError(t, err)

		params := capture(t, env, cartID)

		require.NotNil(t, params.CouponID)
		assert.Equal(t, "coup_250off", *params.CouponID)
		assert.Nil(t, params.AmountOffCents)
	})
}

func TestFinalizePaymentSession(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()

	finalizeEnv := func(t *testing.T, withDiscount bool) (*cmdEnv, commands.CheckoutCommands, uuid.UUID) {
		t.Helper()
		ctrl := gomock.NewController(t)
		env, cartID := checkoutEnv(t, storeID)
		if withDiscount {
			env.discounts.put(builder.NewDiscountBuilder().WithStoreID(storeID).WithUsageLimit(5).BuildView())
			_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
			require.NoError(t, err)
		}
		gw := mock.NewMockPaymentGateway(ctrl)
		gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(
			&commands.PaymentSession{ID: "cs_done", URL: "https://pay.example.com/cs_done"}, nil)
		checkout := env.checkoutCommands(gw)
		_, err := checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
		require.NoError(t, err)
		return env, checkout, cartID
	}

	t.Run("commits counters, records the order once and completes the cart", func(t *testing.T) {
		t.Parallel()
		env, checkout, cartID := finalizeEnv(t, true)

		require.NoError(t, checkout.FinalizePaymentSession(context.Background(), "cs_done"))

		onHandW, reservedW := env.inventory.counters("widget")
		onHandG, reservedG := env.inventory.counters("gadget")
		assert.Equal(t, int32(8), onHandW)
		assert.Zero(t, reservedW)
		assert.Equal(t, int32(4), onHandG)
		assert.Zero(t, reservedG)
		assert.Equal(t, 1, env.orders.count())
		assert.Equal(t, 1, env.discounts.recordedUsages())
		assert.Equal(t, "completed", env.carts.status(cartID))
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		t.Parallel()
		env, checkout, _ := finalizeEnv(t, true)

		require.NoError(t, checkout.FinalizePaymentSession(context.Background(), "cs_done"))
		require.NoError(t, checkout.FinalizePaymentSession(context.Background(), "cs_done"))

		onHandW, reservedW := env.inventory.counters("widget")
		assert.Equal(t, int32(8), onHandW)
		assert.Zero(t, reservedW)
		assert.Equal(t, 1, env.orders.count())
		assert.Equal(t, 1, env.discounts.recordedUsages())
	})

	t.Run("unknown session reference", func(t *testing.T) {
		t.Parallel()
		_, checkout, _ := finalizeEnv(t, false)

		err := checkout.FinalizePaymentSession(context.Background(), "cs_unknown")

		assert.ErrorIs(t, err, commands.ErrCartNotFound)
	})

	t.Run("releasing a finalized cart leaves consumed reservations alone", func(t *testing.T) {
		t.Parallel()
		env, checkout, cartID := finalizeEnv(t, true)
		require.NoError(t, checkout.FinalizePaymentSession(context.Background(), "cs_done"))

		// Another cart takes its own hold on the remaining stock.
		ok, err := env.inventory.TryReserve(context.Background(), storeID, "widget", 3)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, checkout.ReleaseCartReservations(context.Background(), storeID, cartID))

		onHandW, reservedW := env.inventory.counters("widget")
		assert.Equal(t, int32(8), onHandW)
		assert.Equal(t, int32(3), reservedW)
		assert.Equal(t, 1, env.discounts.recordedUsages())
		assert.Equal(t, "completed", env.carts.status(cartID))
	})
}

func TestReleaseCartReservations(t *testing.T) {
	t.Parallel()

	storeID := uuid.New()
	ctrl := gomock.NewController(t)
	env, cartID := checkoutEnv(t, storeID)
	dview := builder.NewDiscountBuilder().WithStoreID(storeID).WithUsageLimit(5).BuildView()
	env.discounts.put(dview)
	_, err := env.cartCommands().ApplyDiscount(context.Background(), storeID, cartID, "save10")
	require.NoError(t, err)
	gw := mock.NewMockPaymentGateway(ctrl)
	gw.EXPECT().CreateSession(gomock.Any(), gomock.Any()).Return(
		&commands.PaymentSession{ID: "cs_stale", URL: "https://pay.example.com/cs_stale"}, nil)
	checkout := env.checkoutCommands(gw)
	_, err = checkout.Checkout(context.Background(), storeID, cartID, checkoutInput)
	require.NoError(t, err)
	require.Equal(t, int32(1), env.discounts.usageCount(dview.ID))

	require.NoError(t, checkout.ReleaseCartReservations(context.Background(), storeID, cartID))

	onHandW, reservedW := env.inventory.counters("widget")
	_, reservedG := env.inventory.counters("gadget")
	assert.Equal(t, int32(10), onHandW)
	assert.Zero(t, reservedW)
	assert.Zero(t, reservedG)
	assert.Zero(t, env.discounts.usageCount(dview.ID))
	assert.Equal(t, "expired", env.carts.status(cartID))
}
