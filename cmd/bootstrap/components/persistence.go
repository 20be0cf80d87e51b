package components

import (
	"lounge-booking/internal/infra/cache"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/usecase/shared"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	readsModule,
)

var readsModule = fx.Module("persistence/reads",
	fx.Provide(
		NewCatalogReader,
		NewReads,
	),
)

// Reads pairs the query-side store with the invalidator commands call after commit.
type Reads struct {
	fx.Out

	Reservations shared.ReservationReads
	Invalidator  shared.SnapshotInvalidator
}

func NewCatalogReader(uow shared.UnitOfWork) shared.CatalogReader {
	return uow.Catalog()
}

// NewReads puts the availability cache in front of the store when Redis is up.
func NewReads(uow shared.UnitOfWork, rdb *redis.Client, cfg config.Config) Reads {
	if rdb == nil {
		return Reads{Reservations: uow.Reads(), Invalidator: shared.NopInvalidator{}}
	}
	c := cache.NewAvailabilityCache(uow.Reads(), rdb, cfg)
	return Reads{Reservations: c, Invalidator: c}
}
