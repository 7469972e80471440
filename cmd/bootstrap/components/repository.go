package components

import (
	"shopkit/internal/infra/db"
	"shopkit/internal/infra/repository"
	"shopkit/internal/usecase/commands"
	"shopkit/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		NewTxBeginner,
		// Concrete repositories stay available for the read-side services.
		repository.NewCartRepository,
		repository.NewInventoryRepository,
		repository.NewDiscountRepository,
		repository.NewOrderRepository,
		func(r *repository.CartRepository) commands.CartRepository { return r },
		func(r *repository.InventoryRepository) commands.InventoryLedger { return r },
		func(r *repository.DiscountRepository) commands.DiscountRepository { return r },
		func(r *repository.OrderRepository) commands.OrderRepository { return r },
		fx.Annotate(
			repository.NewCartQueryService,
			fx.As(new(queries.CartQueries)),
		),
		fx.Annotate(
			repository.NewInventoryQueryService,
			fx.As(new(queries.InventoryQueries)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewTxBeginner(pool *pgxpool.Pool) commands.TxBeginner {
	return pool
}
