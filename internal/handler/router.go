package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/portafolio-docente-api/internal/middleware"
	"github.com/noah-isme/portafolio-docente-api/internal/models"
)

// Routes groups every API handler with the middleware dependencies shared across groups.
type Routes struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Semesters     *SemesterHandler
	Courses       *CourseHandler
	Portfolios    *PortfolioHandler
	Documents     *DocumentHandler
	Reports       *ReportHandler
	Health        *HealthHandler
	Authenticator middleware.Authenticator
	Audit         middleware.AuditRecorder
}

// Register mounts the API under api.
func (r Routes) Register(api *gin.RouterGroup) {
	requireAuth := middleware.JWT(r.Authenticator)
	admin := middleware.RequireRoles(models.RoleAdmin)
	teacher := middleware.RequireRoles(models.RoleTeacher)
	evaluator := middleware.RequireRoles(models.RoleEvaluator)

	api.GET("/health", r.Health.Health)
	api.GET("/ready", r.Health.Ready)

	auth := api.Group("/auth")
	auth.POST("/login", r.Auth.Login)
	authed := auth.Group("", requireAuth, middleware.AuditDenied(r.Audit, "auth"))
	authed.POST("/register", admin, r.Auth.Register)
	authed.GET("/verify", r.Auth.Verify)
	authed.PUT("/change-password", r.Auth.ChangePassword)
	authed.POST("/logout", r.Auth.Logout)

	users := api.Group("/users", requireAuth, middleware.AuditDenied(r.Audit, "users"), admin)
	users.GET("", r.Users.List)
	users.GET("/evaluators", r.Users.Evaluators)
	users.GET("/:id", r.Users.Get)
	users.PUT("/:id/status", r.Users.UpdateStatus)

	semesters := api.Group("/semesters", requireAuth, middleware.AuditDenied(r.Audit, "semesters"))
	semesters.GET("", r.Semesters.List)
	semesters.POST("", admin, r.Semesters.Create)

	courses := api.Group("/courses", requireAuth, middleware.AuditDenied(r.Audit, "courses"))
	courses.GET("", r.Courses.List)
	courses.GET("/:id", r.Courses.Get)
	courses.POST("", admin, r.Courses.Create)
	courses.PUT("/:id", admin, r.Courses.Update)
	courses.DELETE("/:id", admin, r.Courses.Delete)

	portfolios := api.Group("/portfolios", requireAuth, middleware.AuditDenied(r.Audit, "portfolios"))
	portfolios.GET("", r.Portfolios.List)
	portfolios.GET("/:id", r.Portfolios.Get)
	portfolios.POST("", teacher, r.Portfolios.Create)
	portfolios.DELETE("/:id", admin, r.Portfolios.Delete)
	portfolios.PUT("/:id/enviar", teacher, r.Portfolios.Submit)
	portfolios.PUT("/:id/asignar-evaluador", admin, r.Portfolios.AssignEvaluator)
	portfolios.PUT("/:id/evaluar", evaluator, r.Portfolios.Evaluate)
	portfolios.GET("/:id/comentarios", r.Portfolios.ListComments)
	portfolios.POST("/:id/comentarios", evaluator, r.Portfolios.AddComment)
	portfolios.GET("/:id/files", r.Documents.List)
	portfolios.POST("/:id/files", teacher, r.Documents.Upload)

	api.GET("/files/shared/:token", r.Documents.Shared)
	files := api.Group("/files", requireAuth, middleware.AuditDenied(r.Audit, "documents"))
	files.GET("/:id", r.Documents.Get)
	files.GET("/:id/download", r.Documents.Download)
	files.DELETE("/:id", teacher, r.Documents.Delete)

	reports := api.Group("/reports", requireAuth, middleware.AuditDenied(r.Audit, "reports"), admin)
	reports.GET("/portfolios/summary", r.Reports.Summary)
	reports.GET("/portfolios/export", r.Reports.Export)
}
