package bootstrap

import (
	"context"
	"log/slog"

	"lounge-booking/internal/handler/api"
	"lounge-booking/internal/infra/notify"
	"lounge-booking/internal/pkg/config"
	"lounge-booking/internal/usecase/shared"

	"go.uber.org/fx"
)

var BrokerModule = fx.Module("broker",
	fx.Provide(
		fx.Annotate(
			NewHub,
			fx.As(fx.Self()),
			fx.As(new(api.FeedServer)),
		),
		NewNotifier,
	),
)

func NewHub(lc fx.Lifecycle, cfg config.Config) *notify.Hub {
	hub := notify.NewHub(cfg.CORS.AllowOrigins)
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go hub.Run(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return hub
}

// NewNotifier fans committed events out to the live feed and to the broker,
// falling back to the log when the broker is disabled or unreachable.
func NewNotifier(lc fx.Lifecycle, cfg config.Config, hub *notify.Hub, logger *slog.Logger) shared.Notifier {
	if !cfg.Broker.Enabled {
		return notify.Fanout{hub, notify.LogNotifier{}}
	}
	publisher, err := notify.NewAMQPNotifier(cfg.Broker)
	if err != nil {
		logger.Warn("broker unreachable, reservation events are logged only", "queue", cfg.Broker.Queue, "error", err)
		return notify.Fanout{hub, notify.LogNotifier{}}
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})
	return notify.Fanout{hub, publisher}
}
