package main

import (
	"github.com/gin-gonic/gin"
	"github.com/taskhive/backend/internal/handlers"
	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	authLimiter := middleware.NewRateLimiter(5, 10)
	submitLimiter := middleware.NewRateLimiter(2, 10)

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics)

	api := r.Group("/api")
	{
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// SSE validates its own token so EventSource can pass it as a query parameter.
		api.GET("/events/submissions", svc.sseHandler.StreamSubmissionEvents)

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)
			protected.GET("/submissions/:id", svc.submissionHandler.GetByID)
		}

		applicant := api.Group("/applicant")
		applicant.Use(middleware.AuthRequired(), middleware.ApplicantRequired())
		{
			applicant.POST("/qualification", svc.qualificationHandler.Submit)
		}

		freelancer := api.Group("")
		freelancer.Use(middleware.AuthRequired(), middleware.FreelancerRequired())
		{
			freelancer.GET("/projects", svc.projectHandler.ListAvailable)
			freelancer.GET("/project/:id", svc.projectHandler.GetWithTask)
			freelancer.POST("/project/:id/submit", submitLimiter.Middleware(), svc.submissionHandler.Submit)
			freelancer.GET("/my/submissions", svc.submissionHandler.ListMine)

			freelancer.GET("/wallet", svc.walletHandler.Get)
			freelancer.PUT("/wallet/payment-method", svc.walletHandler.UpdatePaymentMethod)
			freelancer.GET("/wallet/entries", svc.walletHandler.ListEntries)
			freelancer.GET("/wallet/payouts", svc.walletHandler.ListMyPayouts)
			freelancer.POST("/wallet/payout", svc.walletHandler.RequestPayout)

			freelancer.GET("/dashboard/freelancer", svc.dashboardHandler.Freelancer)
		}

		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.GET("/submissions", svc.submissionHandler.List)
			admin.POST("/submission/:id/review", svc.submissionHandler.Review)
			admin.POST("/submissions/bulk-review", svc.submissionHandler.BulkReview)
			admin.GET("/dashboard/admin", svc.dashboardHandler.Admin)

			admin.GET("/admin/projects", svc.projectHandler.List)
			admin.GET("/admin/projects/options", svc.projectHandler.Options)
			admin.GET("/admin/projects/:id", svc.projectHandler.GetByID)
			admin.GET("/admin/projects/:id/pool-stats", svc.projectHandler.PoolStats)
			admin.POST("/admin/projects", svc.projectHandler.Create)
			admin.PUT("/admin/projects/:id", svc.projectHandler.Update)
			admin.POST("/admin/projects/:id/deactivate", svc.projectHandler.Deactivate)
			admin.POST("/admin/projects/:id/task-pool", svc.projectHandler.AppendTaskPool)
			admin.DELETE("/admin/projects/:id", svc.projectHandler.Delete)

			admin.GET("/admin/applicants", svc.qualificationHandler.List)
			admin.POST("/admin/applicants/:id/review", svc.qualificationHandler.Review)

			admin.GET("/admin/payouts", svc.walletHandler.ListPayouts)
			admin.POST("/admin/payouts/:id/review", svc.walletHandler.ReviewPayout)

			admin.GET("/admin/users", svc.userHandler.List)
			admin.PUT("/admin/users/:id", svc.userHandler.Update)
			admin.DELETE("/admin/users/:id", svc.userHandler.Delete)

			admin.GET("/admin/llm-configs", svc.llmConfigHandler.List)
			admin.GET("/admin/llm-configs/providers", svc.llmConfigHandler.Providers)
			admin.GET("/admin/llm-configs/:id", svc.llmConfigHandler.GetByID)
			admin.POST("/admin/llm-configs", svc.llmConfigHandler.Create)
			admin.PUT("/admin/llm-configs/:id", svc.llmConfigHandler.Update)
			admin.DELETE("/admin/llm-configs/:id", svc.llmConfigHandler.Delete)
			admin.POST("/admin/llm-configs/:id/test", svc.llmConfigHandler.Test)

			admin.GET("/admin/im-bots", svc.imBotHandler.List)
			admin.GET("/admin/im-bots/types", svc.imBotHandler.Types)
			admin.GET("/admin/im-bots/:id", svc.imBotHandler.GetByID)
			admin.POST("/admin/im-bots", svc.imBotHandler.Create)
			admin.PUT("/admin/im-bots/:id", svc.imBotHandler.Update)
			admin.DELETE("/admin/im-bots/:id", svc.imBotHandler.Delete)
			admin.POST("/admin/im-bots/:id/test", svc.imBotHandler.Test)

			admin.GET("/admin/settings/:group", svc.systemConfigHandler.GetGroup)
			admin.PUT("/admin/settings/:group", svc.systemConfigHandler.UpdateGroup)

			admin.GET("/admin/system-logs", svc.systemLogHandler.List)
			admin.GET("/admin/system-logs/modules", svc.systemLogHandler.GetModules)
			admin.GET("/admin/system-logs/retention", svc.systemLogHandler.GetRetention)
			admin.PUT("/admin/system-logs/retention", svc.systemLogHandler.SetRetention)
			admin.POST("/admin/system-logs/cleanup", svc.systemLogHandler.Cleanup)

			admin.GET("/admin/digests", svc.digestHandler.List)
			admin.GET("/admin/digests/countries", svc.digestHandler.Countries)
			admin.POST("/admin/digests/generate", svc.digestHandler.Generate)
			admin.POST("/admin/digests/:id/resend", svc.digestHandler.Resend)
		}
	}
}
