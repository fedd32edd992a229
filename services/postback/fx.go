package postback

import (
	"surveyrewards/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("postback.service",
	fx.Provide(NewService),
	fx.Invoke(registerRoutes),
)

func registerRoutes(router *gin.Engine, cfg *config.Config, svc *Service) {
	group := router.Group("/postbacks")

	if p := cfg.Providers.CPXResearch; p.Enabled {
		group.GET("/cpx", svc.Handle(NewCPXAdapter(p.Secret)))
	}
	if p := cfg.Providers.Inbrain; p.Enabled {
		group.POST("/inbrain", svc.Handle(NewInbrainAdapter(p.Secret)))
	}
	if p := cfg.Providers.Bitlabs; p.Enabled {
		group.GET("/bitlabs/reward", svc.Handle(NewBitlabsRewardAdapter(p.Secret)))
		group.GET("/bitlabs/reclaim", svc.Handle(NewBitlabsReclaimAdapter(p.Secret)))
	}

	zap.L().Info("postback routes registered",
		zap.Bool("cpx_research", cfg.Providers.CPXResearch.Enabled),
		zap.Bool("inbrain", cfg.Providers.Inbrain.Enabled),
		zap.Bool("bitlabs", cfg.Providers.Bitlabs.Enabled),
	)
}
