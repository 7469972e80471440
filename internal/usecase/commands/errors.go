package commands

import "shopkit/internal/pkg/errs"

// Sentinel errors shared by the checkout engine's command layer. Handlers map
// these onto the HTTP error taxonomy.
var (
	ErrCartNotFound          = errs.New("cart not found")
	ErrCartNotOpen           = errs.New("cart is not open")
	ErrCartExpired           = errs.New("cart has expired")
	ErrEmptyCart             = errs.New("cart is empty")
	ErrInvalidRequest        = errs.New("invalid request")
	ErrSKUNotFound           = errs.New("sku not found")
	ErrSKUInactive           = errs.New("sku is inactive")
	ErrInsufficientInventory = errs.New("insufficient inventory")
	ErrDiscountNotFound      = errs.New("discount not found")
	ErrInvalidDiscount       = errs.New("discount is not valid")
	ErrDiscountLimitReached  = errs.New("discount usage limit reached")
	ErrPaymentGateway        = errs.New("payment processing error")
	ErrDatabaseOperation     = errs.New("database operation failed")
)
