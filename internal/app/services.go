package app

import (
	"gorm.io/gorm"

	dataagg "github.com/yungbote/neurobridge-mastery/internal/data/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/data/graph"
	domainagg "github.com/yungbote/neurobridge-mastery/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
	"github.com/yungbote/neurobridge-mastery/internal/services"
)

type Services struct {
	Aggregate      domainagg.SkillMasteryAggregate
	Events         services.EventPublisher
	Mastery        services.MasteryService
	Prerequisites  services.PrerequisiteService
	Recommendation services.RecommendationService
	Sweeper        services.DecaySweeper
	Auth           services.AuthService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients *Clients, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	agg := dataagg.NewSkillMasteryAggregate(dataagg.SkillMasteryAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: dataagg.NewMetricsHooks(metrics),
		},
		States:       r.Mastery,
		Interactions: r.Interactions,
		Adjustments:  r.Adjustments,
		Model:        cfg.Mastery,
		Schedule:     cfg.Schedule,
		Decay:        cfg.Decay,
		Retry:        cfg.Retry,
	})
	mirror := graph.NewNeo4jMirror(clients.Neo4j, log)
	events := services.NewEventPublisher(log, clients.Bus, metrics)

	return Services{
		Aggregate: agg,
		Events:    events,
		Mastery: services.NewMasteryService(services.MasteryServiceDeps{
			Log:       log,
			Aggregate: agg,
			Students:  r.Students,
			Subjects:  r.Subjects,
			Skills:    r.Skills,
			States:    r.Mastery,
			Events:    events,
			Mirror:    mirror,
			Metrics:   metrics,
			Model:     cfg.Mastery,
		}),
		Prerequisites: services.NewPrerequisiteService(
			log, r.Students, r.Subjects, r.Skills, r.Prerequisites, r.Mastery, mirror, cfg.Graph,
		),
		Recommendation: services.NewRecommendationService(services.RecommendationServiceDeps{
			Log:       log,
			Students:  r.Students,
			Subjects:  r.Subjects,
			Skills:    r.Skills,
			Prereqs:   r.Prerequisites,
			States:    r.Mastery,
			Modules:   r.Modules,
			Paths:     r.Paths,
			Model:     cfg.Mastery,
			Graph:     cfg.Graph,
			Recommend: cfg.Recommend,
		}),
		Sweeper: services.NewDecaySweeper(services.DecaySweeperDeps{
			Log:       log,
			States:    r.Mastery,
			Aggregate: agg,
			Events:    events,
			Metrics:   metrics,
			Decay:     cfg.Decay,
			Sweep:     cfg.Sweep,
		}),
		Auth: services.NewAuthService(log, cfg.Auth),
	}
}
