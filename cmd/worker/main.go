package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/db"
	"surveyrewards/pkg/logger"
	"surveyrewards/pkg/task"
	"surveyrewards/services/account"
	"surveyrewards/services/ledger"
	"surveyrewards/services/survey"
	"surveyrewards/services/wallet"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		task.Server,
		fx.Provide(
			provideSnowflakeNode,
			account.NewService,
		),
		ledger.Module,
		survey.TaskModule,
		wallet.TaskModule,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
