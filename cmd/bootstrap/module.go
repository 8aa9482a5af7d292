package bootstrap

import (
	"scheduled-mailer/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DBModule,
	JWTModule,
	TransportModule,
	components.RepositoryModule,
	components.QueueModule,
	components.UseCaseModule,
	components.WorkerModule,
	components.HandlerModule,
)
