package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"shopkit/internal/handler/api"
	"shopkit/internal/handler/middleware"
	"shopkit/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(engine *gin.Engine, cfg config.Config, cartHandler *api.CartHandler, checkoutHandler *api.CheckoutHandler, inventoryHandler *api.InventoryHandler) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, cartHandler, checkoutHandler, inventoryHandler)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, cartHandler *api.CartHandler, checkoutHandler *api.CheckoutHandler, inventoryHandler *api.InventoryHandler) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		carts := apiGroup.Group("/carts")
		carts.Use(middleware.RequireStore())
		{
			addRoutes(carts, []route{
				{Method: http.MethodPost, Path: "", Handler: cartHandler.CreateCart},
				{Method: http.MethodGet, Path: "/:id", Handler: cartHandler.GetCart},
				{Method: http.MethodPost, Path: "/:id/items", Handler: cartHandler.SetItems},
				{Method: http.MethodPost, Path: "/:id/apply-discount", Handler: cartHandler.ApplyDiscount},
				{Method: http.MethodDelete, Path: "/:id/discount", Handler: cartHandler.RemoveDiscount},
				{Method: http.MethodPost, Path: "/:id/checkout", Handler: checkoutHandler.Checkout},
				{Method: http.MethodPost, Path: "/:id/release", Handler: checkoutHandler.ReleaseReservations},
			})
		}

		inventory := apiGroup.Group("/inventory")
		inventory.Use(middleware.RequireStore())
		{
			addRoutes(inventory, []route{
				{Method: http.MethodGet, Path: "/availability", Handler: inventoryHandler.Availability},
			})
		}

		// Finalization is keyed by session reference alone; payment provider
		// callbacks carry no store header.
		sessions := apiGroup.Group("/payment-sessions")
		{
			addRoutes(sessions, []route{
				{Method: http.MethodPost, Path: "/:ref/finalize", Handler: checkoutHandler.FinalizeSession},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
