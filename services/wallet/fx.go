package wallet

import (
	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(router *gin.Engine, cfg *config.Config, svc *Service) {
	authed := router.Group("/api", middleware.Auth(cfg))
	authed.GET("/wallet", svc.Summary)
	authed.POST("/withdrawals", svc.RequestWithdrawal)
	authed.GET("/withdrawals", svc.List)
}
