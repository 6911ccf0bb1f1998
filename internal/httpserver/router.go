package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitetrack/internal/handler"
	"sitetrack/pkg/otel"
	"sitetrack/pkg/rbac"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Router struct {
	Engine *gin.Engine
}

// NewHealthRouter serves only health, readiness and metrics. The worker
// uses it on its own.
func NewHealthRouter(checks map[string]ReadinessCheck) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	registerHealth(r, checks)
	return &Router{Engine: r}
}

// APIHandlers groups the handlers mounted by NewRouter.
type APIHandlers struct {
	Auth    *handler.AuthHandler
	Project *handler.ProjectHandler
	Admin   *handler.AdminHandler
}

func NewRouter(h APIHandlers, jwtSecret string, logger *zap.Logger, checks map[string]ReadinessCheck) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), MetricsMiddleware(), RequestLogger(logger))

	// Health endpoints (放在最前面)
	registerHealth(r, checks)

	// Public
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		projects := auth.Group("/projects")
		projects.POST("", RequirePermission(rbac.PermissionCreateProject), h.Project.Create)
		projects.GET("", RequirePermission(rbac.PermissionReadProject), h.Project.List)
		projects.GET("/:id", RequirePermission(rbac.PermissionReadProject), h.Project.Get)
		projects.PATCH("/:id", RequirePermission(rbac.PermissionUpdateProject), h.Project.Update)

		pin := RequirePermission(rbac.PermissionPinProgress)
		projects.PUT("/:id/progress", pin, h.Project.SetProjectProgress)
		projects.DELETE("/:id/progress", pin, h.Project.ResetProjectProgress)
		projects.PUT("/:id/floors/:floorId/progress", pin, h.Project.SetFloorProgress)
		projects.DELETE("/:id/floors/:floorId/progress", pin, h.Project.ResetFloorProgress)
		projects.PUT("/:id/floors/:floorId/tasks/:taskId/progress", pin, h.Project.SetTaskProgress)
		projects.DELETE("/:id/floors/:floorId/tasks/:taskId/progress", pin, h.Project.ResetTaskProgress)

		lifecycle := RequirePermission(rbac.PermissionProjectLifecycle)
		for _, action := range []string{"start", "postpone", "resume", "end"} {
			projects.POST("/:id/"+action, lifecycle, h.Project.Lifecycle(action))
		}
		projects.PUT("/:id/status", lifecycle, h.Project.SetStatus)

		if h.Admin != nil {
			admin := auth.Group("/admin", RequirePermission(rbac.PermissionReplayOutbox))
			admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
			admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
		}
	}

	return &Router{Engine: r}
}

func registerHealth(r *gin.Engine, checks map[string]ReadinessCheck) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for name, check := range checks {
			if err := check(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
