package account

import (
	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(router *gin.Engine, cfg *config.Config, svc *Service) {
	api := router.Group("/api")
	api.POST("/auth/register", svc.Register)
	api.POST("/auth/login", svc.Login)
	api.GET("/leaderboard", svc.Leaderboard)

	authed := api.Group("", middleware.Auth(cfg))
	authed.GET("/auth/me", svc.Me)
}
