package api

import (
	"errors"
	"net/http"

	"shopkit/internal/handler/httperr"
	"shopkit/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

// respondCommandError maps command-layer sentinels onto the wire taxonomy:
// invalid_request, not_found, conflict, insufficient_inventory,
// payment_gateway_error. Anything unmapped is an internal error.
func respondCommandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, commands.ErrCartNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "not_found", "Cart not found", nil)
	case errors.Is(err, commands.ErrDiscountNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "not_found", "Discount not found", nil)
	case errors.Is(err, commands.ErrSKUNotFound):
		httperr.AbortWithError(c, http.StatusNotFound, err, "not_found", "SKU not found", nil)
	case errors.Is(err, commands.ErrCartNotOpen):
		httperr.AbortWithError(c, http.StatusConflict, err, "conflict", "Cart is not open", nil)
	case errors.Is(err, commands.ErrCartExpired):
		httperr.AbortWithError(c, http.StatusConflict, err, "conflict", "Cart has expired", nil)
	case errors.Is(err, commands.ErrInsufficientInventory):
		httperr.AbortWithError(c, http.StatusConflict, err, "insufficient_inventory", "Insufficient inventory", nil)
	case errors.Is(err, commands.ErrEmptyCart):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Cart is empty", nil)
	case errors.Is(err, commands.ErrSKUInactive):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "SKU is inactive", nil)
	case errors.Is(err, commands.ErrInvalidDiscount):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Discount is not valid for this cart", nil)
	case errors.Is(err, commands.ErrDiscountLimitReached):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Discount usage limit reached", nil)
	case errors.Is(err, commands.ErrInvalidRequest):
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid request", nil)
	case errors.Is(err, commands.ErrPaymentGateway):
		httperr.AbortWithError(c, http.StatusBadGateway, err, "payment_gateway_error", "Payment provider request failed", nil)
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "internal", "Internal server error", nil)
	}
}
