package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"surveyrewards/pkg/config"
	"surveyrewards/pkg/db"
	"surveyrewards/pkg/health"
	"surveyrewards/pkg/logger"
	"surveyrewards/pkg/redis"
	"surveyrewards/pkg/sequence"
	"surveyrewards/pkg/server"
	"surveyrewards/pkg/task"
	"surveyrewards/services/account"
	"surveyrewards/services/bootstrap"
	"surveyrewards/services/ledger"
	"surveyrewards/services/postback"
	"surveyrewards/services/survey"
	"surveyrewards/services/wallet"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.Client,
		fx.Provide(provideSnowflakeNode),
		server.ProvideHTTPServer,
		health.Module,
		bootstrap.Module,
		ledger.Module,
		account.Module,
		survey.Module,
		postback.Module,
		wallet.Module,
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
