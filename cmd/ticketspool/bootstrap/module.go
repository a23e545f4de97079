package bootstrap

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	CoreModule,
	APIModule,
)
