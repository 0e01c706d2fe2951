package app

import (
	"edu_portal_backend/docs"
	"edu_portal_backend/internal/config"
	"edu_portal_backend/internal/middleware"
	"edu_portal_backend/internal/model"
	"edu_portal_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(s.user))
	{
		a.registerSharedRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

// registerSharedRoutes 学生与教师共用的授权接口。
// 作业详情/列表在控制器内部按角色收窄可见范围。
func (a *App) registerSharedRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/me", c.user.Me)
	group.PUT("/me", c.user.UpdateProfile)

	group.GET("/cycles", c.cycle.List)
	group.GET("/cycles/:id", c.cycle.Get)
	group.GET("/lessons", c.lesson.ListByCycle)
	group.GET("/lessons/:id", c.lesson.Get)

	assignments := group.Group("/assignments")
	{
		assignments.GET("", c.assignment.List)
		assignments.GET("/:id", c.assignment.Get)
		assignments.GET("/:id/annotated", c.feedback.Annotated)
		assignments.PUT("/:id/content", c.assignment.SaveContent)
		assignments.POST("/:id/submit", c.assignment.Submit)

		assignments.GET("/:id/chat", c.chat.Snapshot)
		assignments.POST("/:id/chat/open", c.chat.Open)
		assignments.POST("/:id/chat/messages", c.chat.Send)
		assignments.POST("/:id/chat/read", c.chat.MarkRead)
	}

	group.GET("/ws/chat", c.chat.Ws)
}

func (a *App) registerTeacherRoutes(group *gin.RouterGroup, c *controllers) {
	teacher := group.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/cycles", c.cycle.Create)
		teacher.PUT("/cycles/:id", c.cycle.Update)
		teacher.DELETE("/cycles/:id", c.cycle.Delete)
		teacher.GET("/cycles/:id/students", c.cycle.Students)

		teacher.POST("/lessons", c.lesson.Create)
		teacher.PUT("/lessons/:id", c.lesson.Update)
		teacher.DELETE("/lessons/:id", c.lesson.Delete)
		teacher.POST("/lessons/:id/publish", c.lesson.Publish)
		teacher.POST("/lessons/:id/materials", c.lesson.UploadMaterial)

		teacher.POST("/assignments/distribute", c.assignment.Distribute)
		teacher.POST("/assignments/:id/action", c.assignment.Action)

		teacher.POST("/assignments/:id/feedback", c.feedback.Create)
		teacher.PUT("/assignments/:id/feedback/:feedbackId", c.feedback.Edit)
		teacher.DELETE("/assignments/:id/feedback/:feedbackId", c.feedback.Remove)
	}
}

func (a *App) registerAdminRoutes(group *gin.RouterGroup, c *controllers) {
	admin := group.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.List)
		admin.PUT("/users/:id/role", c.user.SetRole)
		admin.PUT("/users/:id/cycle", c.user.AssignCycle)
	}
}
