package api

import (
	"net/http"
	"strings"

	resdto "shopkit/internal/handler/dto/response"
	"shopkit/internal/handler/httperr"
	"shopkit/internal/handler/middleware"
	"shopkit/internal/pkg/errs"
	"shopkit/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryQueries queries.InventoryQueries
}

func NewInventoryHandler(inventoryQueries queries.InventoryQueries) *InventoryHandler {
	return &InventoryHandler{inventoryQueries: inventoryQueries}
}

// @Summary SKU availability
// @Description Non-binding availability figures for a comma-separated SKU list
// @Tags inventory
// @Produce json
// @Param X-Store-ID header string true "Store ID"
// @Param skus query string true "Comma-separated SKU list"
// @Success 200 {array} resdto.SKUAvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Router /inventory/availability [get]
func (h *InventoryHandler) Availability(c *gin.Context) {
	storeID, ok := middleware.GetStoreID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError,
			errs.New("store scope missing"), "internal", "Internal server error", nil)
		return
	}

	raw := c.Query("skus")
	if raw == "" {
		httperr.AbortWithError(c, http.StatusBadRequest,
			errs.New("missing skus parameter"), "invalid_request", "skus query parameter is required", nil)
		return
	}

	var skus []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skus = append(skus, s)
		}
	}

	availability, err := h.inventoryQueries.AvailabilityBySKUs(c.Request.Context(), storeID, skus)
	if err != nil {
		respondCommandError(c, err)
		return
	}

	out := make([]resdto.SKUAvailabilityResponse, 0, len(availability))
	for _, a := range availability {
		out = append(out, resdto.SKUAvailabilityResponse{
			SKU:            a.SKU,
			Title:          a.Title,
			UnitPriceCents: a.UnitPriceCents,
			Active:         a.Active,
			Available:      a.Available,
		})
	}
	c.JSON(http.StatusOK, out)
}
