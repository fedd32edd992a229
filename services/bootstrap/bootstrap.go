package bootstrap

import (
	"surveyrewards/pkg/config"
	"surveyrewards/pkg/db"
	"surveyrewards/services/account"
	"surveyrewards/services/ledger"
	"surveyrewards/services/survey"
	"surveyrewards/services/wallet"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("bootstrap",
	fx.Invoke(
		registerTelemetry,
		autoMigrate,
	),
)

func registerTelemetry(gdb *gorm.DB, cfg *config.Config) error {
	if err := db.Otel(gdb); err != nil {
		return err
	}
	return db.Metric(gdb, cfg.Database.DBNAME)
}

func autoMigrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&account.Account{},
		&ledger.Transaction{},
		&survey.PendingSurvey{},
		&wallet.Withdrawal{},
	)
	if err != nil {
		zap.L().Error("auto-migration failed", zap.Error(err))
		return err
	}

	zap.L().Info("schema migrated")
	return nil
}
