package survey

import (
	"surveyrewards/pkg/config"
	"surveyrewards/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("survey.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(router *gin.Engine, cfg *config.Config, svc *Service) {
	authed := router.Group("/api", middleware.Auth(cfg))
	authed.GET("/surveys", svc.List)
	authed.POST("/surveys/start", svc.Start)
	authed.GET("/surveys/history", svc.History)
	authed.GET("/stats", svc.Stats)
}
