package app

import (
	"context"

	httpx "github.com/yungbote/neurobridge-mastery/internal/http"
	httpH "github.com/yungbote/neurobridge-mastery/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-mastery/internal/http/middleware"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

func wireRouterConfig(log *logger.Logger, cfg Config, s Services, clients *Clients, metrics *observability.Metrics) httpx.RouterConfig {
	log.Info("Wiring handlers...")
	checks := map[string]httpH.Pinger{
		"database": httpH.PingFunc(func(ctx context.Context) error {
			sqlDB, err := clients.DB.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
	if clients.Redis != nil {
		checks["redis"] = httpH.PingFunc(func(ctx context.Context) error {
			return clients.Redis.Ping(ctx).Err()
		})
	}
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpx.RouterConfig{
		Log:                   log,
		Metrics:               metrics,
		ServiceName:           serviceName,
		CORSOrigins:           cfg.HTTP.CORSOrigins,
		AuthMiddleware:        httpMW.NewAuthMiddleware(log, s.Auth),
		MasteryHandler:        httpH.NewMasteryHandler(log, s.Mastery),
		PrerequisiteHandler:   httpH.NewPrerequisiteHandler(log, s.Prerequisites),
		RecommendationHandler: httpH.NewRecommendationHandler(log, s.Recommendation),
		HealthHandler:         httpH.NewHealthHandler(checks),
	}
}
