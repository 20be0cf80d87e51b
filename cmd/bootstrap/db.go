package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"lounge-booking/internal/domain/resource"
	"lounge-booking/internal/infra/db"
	"lounge-booking/internal/infra/memstore"
	"lounge-booking/internal/infra/uow"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewUnitOfWork,
	),
)

// NewUnitOfWork selects the reservation store named by STORE_DRIVER.
func NewUnitOfWork(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (shared.UnitOfWork, error) {
	if cfg.Booking.StoreDriver == config.StoreDriverMemory {
		store := memstore.New()
		if err := seedFloor(store, time.Now().UTC()); err != nil {
			return nil, err
		}
		logger.Warn("in-memory reservation store selected, data is lost on restart")
		return store, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, cleanup, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if cleanup != nil {
				cleanup()
			}
			return nil
		},
	})

	return uow.NewPostgresUoW(pool), nil
}

// floorLayout matches migrations/002_seed_resources.sql.
var floorLayout = []struct {
	category resource.Category
	serials  []string
}{
	{resource.CategoryConsoleStation, []string{"PS-01", "PS-02", "PS-03", "PS-04"}},
	{resource.CategoryPCStationLeft, []string{"PC-L01", "PC-L02", "PC-L03", "PC-L04"}},
	{resource.CategoryPCStationRight, []string{"PC-R01", "PC-R02", "PC-R03", "PC-R04"}},
}

func seedFloor(store *memstore.Store, now time.Time) error {
	for _, row := range floorLayout {
		for _, serial := range row.serials {
			r, err := resource.NewResource(uuid.New(), row.category, serial, now)
			if err != nil {
				return err
			}
			store.AddResource(r)
		}
	}
	return nil
}
