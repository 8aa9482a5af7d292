package components

import (
	"scheduled-mailer/internal/handler"
	"scheduled-mailer/internal/handler/api"
	"scheduled-mailer/internal/handler/middleware"
	"scheduled-mailer/internal/infra/repository"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewEmailHandler,
		NewHealthHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)

func NewHealthHandler(records repository.EmailStore, queue *jobqueue.Queue, clk clock.Clock) *api.HealthHandler {
	return api.NewHealthHandler(records, queue, clk)
}
