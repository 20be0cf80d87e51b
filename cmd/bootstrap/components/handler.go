package components

import (
	"lounge-booking/internal/handler"
	"lounge-booking/internal/handler/api"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewReservationHandler,
		api.NewAvailabilityHandler,
		api.NewFeedHandler,
	),
	fx.Invoke(handler.NewRouter),
)
