package main

import (
	"context"
	"time"

	"github.com/taskhive/backend/internal/config"
	"github.com/taskhive/backend/internal/handlers"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/internal/services"
	"github.com/taskhive/backend/internal/utils"
	"github.com/taskhive/backend/pkg/idgen"
	"github.com/taskhive/backend/pkg/logger"
)

// appServices holds the long-lived services and the handlers built on them.
type appServices struct {
	taskQueue     services.TaskQueue
	worker        *services.Worker
	digestService *services.DigestService
	stopSweeper   context.CancelFunc
	stopCleanup   chan struct{}

	authHandler          *handlers.AuthHandler
	projectHandler       *handlers.ProjectHandler
	submissionHandler    *handlers.SubmissionHandler
	walletHandler        *handlers.WalletHandler
	qualificationHandler *handlers.QualificationHandler
	dashboardHandler     *handlers.DashboardHandler
	llmConfigHandler     *handlers.LLMConfigHandler
	imBotHandler         *handlers.IMBotHandler
	userHandler          *handlers.UserHandler
	systemConfigHandler  *handlers.SystemConfigHandler
	systemLogHandler     *handlers.SystemLogHandler
	digestHandler        *handlers.DigestHandler
	sseHandler           *handlers.SSEHandler
	healthHandler        *handlers.HealthHandler
}

// bootstrap connects the database, wires services and starts the background side channels.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := idgen.Init(cfg.Snowflake.Node); err != nil {
		logger.Fatalf("Failed to init id generator: %v", err)
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()
	services.InitSystemLogger(db)

	stopCleanup := make(chan struct{})
	services.StartLogCleanupScheduler(db, stopCleanup)

	taskQueue := services.InitTaskQueue(cfg)

	aiService := services.NewAIService(db, &cfg.OpenAI)
	notificationService := services.NewNotificationService(db)
	walletService := services.NewWalletService(db, cfg.Tier)
	walletService.SetNotifier(notificationService)
	reviewService := services.NewReviewService(db, walletService, cfg.Triage.AutoApproveThreshold)
	triageService := services.NewTriageService(db, services.NewLLMScorer(aiService), cfg.Triage.Timeout())
	submissionService := services.NewSubmissionService(db, walletService, triageService, reviewService, taskQueue)

	rescore := func(ctx context.Context, task *services.RescoreTask) error {
		return submissionService.Rescore(ctx, task.SubmissionID, cfg.Triage.RescoreMaxAttempts)
	}
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(rescore)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(rescore)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start rescore worker")
			}
		}
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	services.NewRescoreSweeper(db, taskQueue, cfg.Triage.RescoreMaxAttempts,
		time.Duration(cfg.Triage.RescoreIntervalMin)*time.Minute).Start(sweepCtx)

	digestService := services.NewDigestService(db, notificationService, services.NewWorkdayCalendar())
	digestService.StartScheduler()

	authService := services.NewAuthService(db, &cfg.JWT, cfg.LDAP)
	if err := authService.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	projectService := services.NewProjectService(db)
	assignmentService := services.NewAssignmentService(db)

	return &appServices{
		taskQueue:     taskQueue,
		worker:        worker,
		digestService: digestService,
		stopSweeper:   stopSweeper,
		stopCleanup:   stopCleanup,

		authHandler:          handlers.NewAuthHandler(authService),
		projectHandler:       handlers.NewProjectHandler(projectService, assignmentService),
		submissionHandler:    handlers.NewSubmissionHandler(submissionService, reviewService),
		walletHandler:        handlers.NewWalletHandler(walletService),
		qualificationHandler: handlers.NewQualificationHandler(services.NewQualificationService(db, aiService, cfg.Triage.Timeout())),
		dashboardHandler:     handlers.NewDashboardHandler(db, walletService),
		llmConfigHandler:     handlers.NewLLMConfigHandler(services.NewLLMConfigService(db, aiService)),
		imBotHandler:         handlers.NewIMBotHandler(db, notificationService),
		userHandler:          handlers.NewUserHandler(db),
		systemConfigHandler:  handlers.NewSystemConfigHandler(db, digestService),
		systemLogHandler:     handlers.NewSystemLogHandler(db),
		digestHandler:        handlers.NewDigestHandler(digestService),
		sseHandler:           handlers.NewSSEHandler(services.GetSSEHub()),
		healthHandler:        handlers.NewHealthHandler(db),
	}
}

// shutdown stops schedulers first, then drains the queue.
func (s *appServices) shutdown() {
	s.digestService.StopScheduler()
	s.stopSweeper()
	close(s.stopCleanup)
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
