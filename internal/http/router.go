package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-mastery/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-mastery/internal/http/middleware"
	"github.com/yungbote/neurobridge-mastery/internal/observability"
	"github.com/yungbote/neurobridge-mastery/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	MasteryHandler        *httpH.MasteryHandler
	PrerequisiteHandler   *httpH.PrerequisiteHandler
	RecommendationHandler *httpH.RecommendationHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.Correlate())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	staff := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.AuthMiddleware == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{cfg.AuthMiddleware.RequireRole(httpH.RoleTeacher, httpH.RoleAdmin), h}
	}
	admin := func(h gin.HandlerFunc) []gin.HandlerFunc {
		if cfg.AuthMiddleware == nil {
			return []gin.HandlerFunc{h}
		}
		return []gin.HandlerFunc{cfg.AuthMiddleware.RequireRole(httpH.RoleAdmin), h}
	}

	students := api.Group("/students/:student_id")
	subjects := api.Group("/subjects/:subject_id")

	// Mastery
	if h := cfg.MasteryHandler; h != nil {
		students.POST("/interactions", h.RecordInteraction)
		students.GET("/subjects/:subject_id/mastery", h.GetStudentMastery)
		students.PUT("/skills/:skill_key/mastery", staff(h.AdjustMastery)...)
		students.DELETE("/skills/:skill_key/mastery", staff(h.ResetSkillMastery)...)
	}

	// Prerequisites
	if h := cfg.PrerequisiteHandler; h != nil {
		students.GET("/skills/:skill_key/prerequisites", h.GetPrerequisiteStatus)
		subjects.GET("/bottlenecks", staff(h.FindBottlenecks)...)
		subjects.GET("/learning-order", h.GetLearningOrder)
		subjects.GET("/skills/:skill_key/chain", h.GetPrerequisiteChain)
		subjects.GET("/graph/validate", staff(h.ValidateGraph)...)
		subjects.POST("/graph/sync", admin(h.SyncGraph)...)
	}

	// Recommendations
	if h := cfg.RecommendationHandler; h != nil {
		students.GET("/subjects/:subject_id/next-module", h.GetNextModule)
		students.GET("/review-queue", h.GetReviewQueue)
		students.GET("/subjects/:subject_id/diagnostic", h.GetDiagnosticAssessment)
		students.GET("/modules/:module_id/access", h.CanAccessModule)
	}

	return r
}
