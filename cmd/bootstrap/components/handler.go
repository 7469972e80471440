package components

import (
	"shopkit/internal/handler"
	"shopkit/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewCartHandler,
		api.NewCheckoutHandler,
		api.NewInventoryHandler,
	),
	fx.Invoke(handler.NewRouter),
)
