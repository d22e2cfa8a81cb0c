package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/middleware"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/service"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/logger"
	corsmiddleware "github.com/EduCollab-AI/EduCollab-Backend/pkg/middleware/cors"
	reqidmiddleware "github.com/EduCollab-AI/EduCollab-Backend/pkg/middleware/requestid"
)

// RouterDeps carries everything NewRouter mounts.
type RouterDeps struct {
	Logger         *zap.Logger
	APIPrefix      string
	AllowedOrigins []string
	// Auth is nil when AUTH_ENABLED is false; routes are then served without a token.
	Auth    *service.AuthService
	Metrics *service.MetricsService
	Docs    bool

	ClassSchedules     *ClassScheduleHandler
	Payments           *PaymentHandler
	ScheduleExceptions *ScheduleExceptionHandler
	Summary            *SummaryHandler
	BillingRules       *BillingRuleHandler
	Observability      *MetricsHandler
}

// NewRouter builds the gin engine with the probe endpoints and the API group.
func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(deps.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	if deps.Observability != nil {
		r.GET("/health", deps.Observability.Health)
		r.GET("/ready", deps.Observability.Ready)
		r.GET("/metrics", deps.Observability.Prometheus)
	}
	if deps.Docs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	// guard returns the per-route middleware; it is empty when auth is off.
	guard := func(roles []string, scoped bool) []gin.HandlerFunc {
		if deps.Auth == nil {
			return nil
		}
		chain := []gin.HandlerFunc{middleware.RBAC(roles...)}
		if scoped {
			chain = append(chain, middleware.StudentScope())
		}
		return chain
	}
	route := func(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
		return append(chain, h)
	}

	if deps.Auth != nil {
		api.Use(middleware.JWT(deps.Auth))
	}

	everyone := []string{models.RoleAdmin, models.RoleTeacher, models.RoleParent}
	staff := []string{models.RoleAdmin, models.RoleTeacher}

	if h := deps.ClassSchedules; h != nil {
		api.GET("/class/schedules", route(guard(everyone, true), h.List)...)
	}
	if h := deps.ScheduleExceptions; h != nil {
		api.POST("/schedules/exceptions", route(guard(staff, false), h.Create)...)
	}
	if h := deps.Payments; h != nil {
		api.GET("/payments", route(guard(everyone, true), h.List)...)
		api.PUT("/payments/:paymentEventId/status", route(guard(staff, false), h.UpdateStatus)...)
		api.DELETE("/payments/schedules/:paymentScheduleId", route(guard(everyone, true), h.DeleteSchedule)...)
		api.DELETE("/payments/events/:paymentEventId", route(guard(everyone, true), h.DeleteEvent)...)
	}
	if h := deps.BillingRules; h != nil {
		api.POST("/billing-rules", route(guard(everyone, false), h.Create)...)
	}
	if h := deps.Summary; h != nil {
		api.GET("/summary", route(guard(everyone, true), h.Get)...)
		api.GET("/summary/export", route(guard(everyone, true), h.Export)...)
	}

	return r
}
