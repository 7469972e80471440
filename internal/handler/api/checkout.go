package api

import (
	"net/http"

	reqdto "shopkit/internal/handler/dto/request"
	resdto "shopkit/internal/handler/dto/response"
	"shopkit/internal/handler/httperr"
	"shopkit/internal/handler/middleware"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/commands"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CheckoutHandler struct {
	checkoutCommands commands.CheckoutCommands
}

func NewCheckoutHandler(checkoutCommands commands.CheckoutCommands) *CheckoutHandler {
	return &CheckoutHandler{checkoutCommands: checkoutCommands}
}

// @Summary Checkout cart
// @Description Reserve inventory and a discount slot, then open a payment session
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Param request body reqdto.CheckoutRequest true "Checkout request"
// @Success 200 {object} resdto.CheckoutResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Failure 502 {object} httperr.Response
// @Router /carts/{id}/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	var req reqdto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid request format", nil)
		return
	}

	input := commands.CheckoutInput{
		SuccessURL:        req.SuccessURL,
		CancelURL:         req.CancelURL,
		CollectShipping:   req.CollectShipping,
		ShippingCountries: req.ShippingCountries,
	}
	for _, opt := range req.ShippingOptions {
		input.ShippingOptions = append(input.ShippingOptions, commands.ShippingOption{
			Label:       opt.Label,
			AmountCents: opt.AmountCents,
		})
	}

	result, err := h.checkoutCommands.Checkout(c.Request.Context(), storeID, cartID, input)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, &resdto.CheckoutResponse{
		SessionID:   result.SessionID,
		CheckoutURL: result.CheckoutURL,
	})
}

// @Summary Finalize payment session
// @Description Record the order and commit reserved counters after payment succeeds
// @Tags checkout
// @Produce json
// @Param ref path string true "Payment session reference"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Router /payment-sessions/{ref}/finalize [post]
func (h *CheckoutHandler) FinalizeSession(c *gin.Context) {
	sessionRef := c.Param("ref")
	if sessionRef == "" {
		httperr.AbortWithError(c, http.StatusBadRequest,
			errs.New("missing session reference"), "invalid_request", "Session reference is required", nil)
		return
	}

	if err := h.checkoutCommands.FinalizePaymentSession(c.Request.Context(), sessionRef); err != nil {
		respondCommandError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Release cart reservations
// @Description Return held inventory and the usage slot for an abandoned checkout
// @Tags checkout
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Success 204
// @Failure 404 {object} httperr.Response
// @Router /carts/{id}/release [post]
func (h *CheckoutHandler) ReleaseReservations(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.checkoutCommands.ReleaseCartReservations(c.Request.Context(), storeID, cartID); err != nil {
		respondCommandError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *CheckoutHandler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError,
			errs.New("store scope missing"), "internal", "Internal server error", nil)
		return uuid.Nil, uuid.Nil, false
	}

	cartID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid cart ID format", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return storeID, cartID, true
}
