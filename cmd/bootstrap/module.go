package bootstrap

import (
	"shopkit/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	StripeModule,
	components.RepositoryModule,
	components.UseCaseModule,
	components.HandlerModule,
)
