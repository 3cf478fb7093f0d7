package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/practice-rules-api/internal/middleware"
	"github.com/noah-isme/practice-rules-api/internal/models"
	"github.com/noah-isme/practice-rules-api/internal/service"
	"github.com/noah-isme/practice-rules-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/practice-rules-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/practice-rules-api/pkg/middleware/requestid"
)

// RouterConfig carries what the router needs besides the handlers.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
}

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	RuleSets    *RuleSetHandler
	Rules       *RuleHandler
	Resources   *ResourceHandler
	Evaluations *EvaluationHandler
	Metrics     *MetricsHandler
}

// NewRouter mounts every route. Reads are open to all practice members;
// mutations need an admin or manager role.
func NewRouter(cfg RouterConfig, h Handlers) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics, "/health", "/ready", "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.GET(cfg.APIPrefix+"/system/metrics", middleware.JWT(cfg.Tokens), middleware.RequireRoles(models.RoleAdmin), h.Metrics.Summary)

	practice := r.Group(cfg.APIPrefix+"/practices/:practiceId",
		middleware.JWT(cfg.Tokens),
		middleware.PracticeScope(),
	)
	write := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)

	ruleSets := practice.Group("/rule-sets")
	ruleSets.GET("", h.RuleSets.History)
	ruleSets.GET("/graph", h.RuleSets.Graph)
	ruleSets.GET("/active", h.RuleSets.Active)
	ruleSets.GET("/unsaved", h.RuleSets.Unsaved)
	ruleSets.POST("/unsaved", write, h.RuleSets.CreateUnsaved)
	ruleSets.POST("/unsaved/save", write, h.RuleSets.Save)
	ruleSets.DELETE("/unsaved", write, h.RuleSets.Discard)
	ruleSets.GET("/:ruleSetId", h.RuleSets.Get)
	ruleSets.POST("/:ruleSetId/activate", write, h.RuleSets.Activate)
	ruleSets.GET("/:ruleSetId/rules", h.Rules.List)
	ruleSets.GET("/:ruleSetId/rules/export", h.Evaluations.Export)
	ruleSets.GET("/:ruleSetId/practitioners", h.Resources.ListPractitioners)
	ruleSets.GET("/:ruleSetId/locations", h.Resources.ListLocations)
	ruleSets.GET("/:ruleSetId/appointment-types", h.Resources.ListAppointmentTypes)
	ruleSets.GET("/:ruleSetId/base-schedules", h.Resources.ListBaseSchedules)

	rules := practice.Group("/rules")
	rules.POST("/validate", h.Rules.Validate)
	rules.POST("/reorder", write, h.Rules.Reorder)
	rules.POST("", write, h.Rules.Create)
	rules.GET("/:id", h.Rules.Get)
	rules.PUT("/:id", write, h.Rules.Update)
	rules.DELETE("/:id", write, h.Rules.Delete)

	practitioners := practice.Group("/practitioners", write)
	practitioners.POST("", h.Resources.CreatePractitioner)
	practitioners.PUT("/:id", h.Resources.UpdatePractitioner)
	practitioners.DELETE("/:id", h.Resources.DeletePractitioner)

	locations := practice.Group("/locations", write)
	locations.POST("", h.Resources.CreateLocation)
	locations.PUT("/:id", h.Resources.UpdateLocation)
	locations.DELETE("/:id", h.Resources.DeleteLocation)

	appointmentTypes := practice.Group("/appointment-types", write)
	appointmentTypes.POST("", h.Resources.CreateAppointmentType)
	appointmentTypes.PUT("/:id", h.Resources.UpdateAppointmentType)
	appointmentTypes.DELETE("/:id", h.Resources.DeleteAppointmentType)

	schedules := practice.Group("/base-schedules", write)
	schedules.POST("", h.Resources.CreateBaseSchedule)
	schedules.PUT("/:id", h.Resources.UpdateBaseSchedule)
	schedules.DELETE("/:id", h.Resources.DeleteBaseSchedule)

	practice.GET("/audit-logs", write, h.RuleSets.AuditLogs)

	evaluations := practice.Group("/evaluations")
	evaluations.POST("", h.Evaluations.Evaluate)
	evaluations.POST("/simulate", h.Evaluations.Simulate)

	return r
}
