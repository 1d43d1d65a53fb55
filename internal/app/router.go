package app

import (
	"quiz_arena_backend/internal/config"
	"quiz_arena_backend/internal/middleware"
	"quiz_arena_backend/internal/model"
	"quiz_arena_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公开接口
	a.registerPublicRoutes(router, c, cfg)

	// 2. 参赛队伍接口
	quiz := router.Group("/api/quiz")
	quiz.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleTeam))
	a.registerQuizRoutes(quiz, c)

	// 3. 管理员接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/admin/login", c.auth.AdminLogin)
	}

	auth := router.Group("/api/auth")
	{
		auth.POST("/signup", c.auth.Signup)
		auth.POST("/signin", c.auth.Signin)
		auth.POST("/refresh-token", c.auth.RefreshToken)

		authorized := auth.Group("")
		authorized.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleTeam))
		{
			authorized.GET("/me", c.auth.Me)
			authorized.GET("/logout", c.auth.Logout)
		}
	}
}

func (a *App) registerQuizRoutes(quiz *gin.RouterGroup, c *controllers) {
	quiz.GET("/available", c.quiz.GetAvailable)
	quiz.GET("/active", c.quiz.GetActive)
	quiz.GET("/question", c.quiz.GetQuestion)
	quiz.GET("/questions", c.quiz.GetQuestions)
	quiz.POST("/question/attempt", c.quiz.MarkAttempted)
	quiz.POST("/submit", c.quiz.Submit)
	quiz.GET("/result", c.quiz.GetResult)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.RoleAdmin))

	dashboard := admin.Group("/dashboard")
	{
		dashboard.GET("/teams", c.dashboard.GetTeams)
		dashboard.GET("/quizzes", c.dashboard.GetQuizzes)

		dashboard.POST("/quiz", c.dashboard.CreateQuiz)
		dashboard.GET("/quiz", c.dashboard.GetQuiz)
		dashboard.GET("/quiz/details", c.dashboard.GetQuizDetails)
		dashboard.PUT("/quiz/details", c.dashboard.UpdateQuizDetails)
		dashboard.DELETE("/quiz/details", c.dashboard.DeleteQuizDetails)
		dashboard.PUT("/quiz/questions", c.dashboard.ReplaceQuestions)
		dashboard.PATCH("/quiz/status", c.dashboard.UpdateQuizStatus)

		dashboard.POST("/quiz/:quizId/question", c.dashboard.AddQuestion)
		dashboard.PUT("/quiz/:quizId/question/:questionId", c.dashboard.UpdateQuestion)
		dashboard.DELETE("/quiz/:quizId/question/:questionId", c.dashboard.DeleteQuestion)

		dashboard.GET("/results", c.dashboard.GetReport)
		dashboard.GET("/results/report", c.dashboard.GetReport)
		dashboard.GET("/results/attempts", c.dashboard.GetResults)
		dashboard.GET("/results/live", c.dashboard.LiveResults)
	}

	images := admin.Group("/images")
	{
		images.POST("/upload", c.image.Upload)
		images.DELETE("/:filename", c.image.Delete)
	}
}
