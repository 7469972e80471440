package api

import (
	"net/http"

	reqdto "shopkit/internal/handler/dto/request"
	resdto "shopkit/internal/handler/dto/response"
	"shopkit/internal/handler/httperr"
	"shopkit/internal/handler/middleware"
	"shopkit/internal/infra"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/commands"
	"shopkit/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	cartCommands commands.CartCommands
	cartQueries  queries.CartQueries
}

func NewCartHandler(cartCommands commands.CartCommands, cartQueries queries.CartQueries) *CartHandler {
	return &CartHandler{
		cartCommands: cartCommands,
		cartQueries:  cartQueries,
	}
}

// @Summary Create cart
// @Description Create an empty open cart for a customer
// @Tags carts
// @Accept json
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param request body reqdto.CreateCartRequest true "Cart request"
// @Success 201 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Router /carts [post]
func (h *CartHandler) CreateCart(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError,
			errs.New("store scope missing"), "internal", "Internal server error", nil)
		return
	}

	var req reqdto.CreateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid request format", nil)
		return
	}

	view, err := h.cartCommands.CreateCart(c.Request.Context(), storeID, req.CustomerEmail)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resdto.FromCartView(view))
}

// @Summary Get cart
// @Description Get a cart with items and computed totals
// @Tags carts
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Success 200 {object} resdto.CartResponse
// @Failure 404 {object} httperr.Response
// @Router /carts/{id} [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	view, err := h.cartQueries.GetByID(c.Request.Context(), storeID, cartID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			err = errs.Mark(err, commands.ErrCartNotFound)
		}
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCartView(view))
}

// @Summary Set cart items
// @Description Replace the cart's item set after validating availability
// @Tags carts
// @Accept json
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Param request body reqdto.SetItemsRequest true "Item lines"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Failure 409 {object} httperr.Response
// @Router /carts/{id}/items [post]
func (h *CartHandler) SetItems(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	var req reqdto.SetItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid request format", nil)
		return
	}

	lines := make([]commands.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, commands.ItemInput{SKU: it.SKU, Quantity: it.Quantity})
	}

	view, err := h.cartCommands.SetItems(c.Request.Context(), storeID, cartID, lines)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCartView(view))
}

// @Summary Apply discount
// @Description Validate a discount code against the cart and attach it
// @Tags carts
// @Accept json
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Param request body reqdto.ApplyDiscountRequest true "Discount code"
// @Success 200 {object} resdto.CartResponse
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /carts/{id}/apply-discount [post]
func (h *CartHandler) ApplyDiscount(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	var req reqdto.ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "invalid_request", "Invalid request format", nil)
		return
	}

	view, err := h.cartCommands.ApplyDiscount(c.Request.Context(), storeID, cartID, req.Code)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCartView(view))
}

// @Summary Remove discount
// @Description Detach the discount currently applied to the cart
// @Tags carts
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param id path string true "Cart ID"
// @Success 200 {object} resdto.CartResponse
// @Failure 404 {object} httperr.Response
// @Router /carts/{id}/discount [delete]
func (h *CartHandler) RemoveDiscount(c *gin.Context) {
	storeID, cartID, ok := h.scope(c)
	if !ok {
		return
	}

	view, err := h.cartCommands.RemoveDiscount(c.Request.Context(), storeID, cartID)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCartView(view))
}

func (h *CartHandler) scope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
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
