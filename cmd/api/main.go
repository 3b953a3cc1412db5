package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "hr-center/docs" // This is for Swagger
	"hr-center/internal/auth"
	"hr-center/internal/config"
	"hr-center/internal/crm"
	"hr-center/internal/database"
	"hr-center/internal/email"
	"hr-center/internal/handlers"
	"hr-center/internal/logger"
	"hr-center/internal/middleware"
	"hr-center/internal/opensign"
	"hr-center/internal/pdf"
	"hr-center/internal/repository"
	"hr-center/internal/scheduler"
	"hr-center/internal/service"
	"hr-center/internal/signing"
	"hr-center/internal/storage"
	"hr-center/internal/vault"
	"hr-center/internal/workflow"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title HR Center API
// @version 1.0
// @description Document assignment and signing backend for the HR portal

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	ctx := context.Background()

	// Initialize database
	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations(ctx, os.DirFS(cfg.App.MigrationsDir)); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	employeeRepo := repository.NewEmployeeRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)
	assignmentRepo := repository.NewAssignmentRepository(db.DB)
	signerRepo := repository.NewSignerRepository(db.DB)
	taskRepo := repository.NewTaskRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	receiptRepo := repository.NewReceiptRepository(db.DB)
	reconciliationRepo := repository.NewReconciliationRepository(db.DB)
	evidenceRepo := repository.NewEvidenceRepository(db.DB)

	// Initialize external clients
	objectStore, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize object storage", "error", err)
		os.Exit(1)
	}

	pipeline, err := crm.LoadPipeline(cfg.Bitrix.PipelineFile)
	if err != nil {
		slog.Error("Failed to load CRM pipeline", "error", err, "path", cfg.Bitrix.PipelineFile)
		os.Exit(1)
	}
	crmClient := crm.NewClient(&cfg.Bitrix, pipeline)
	provider := opensign.NewClient(&cfg.OpenSign)
	emailService := email.NewService(&cfg.Email)

	deps := signing.Deps{
		Assignments:     assignmentRepo,
		Templates:       templateRepo,
		Signers:         signerRepo,
		Tasks:           taskRepo,
		Audit:           auditRepo,
		Receipts:        receiptRepo,
		Reconciliations: reconciliationRepo,
		Evidence:        evidenceRepo,
		Storage:         objectStore,
		CRM:             crmClient,
		Provider:        provider,
		Renderer:        pdf.NewRenderer(),
		Notifier:        emailService,
		Directory:       employeeRepo,
	}

	// Initialize evidence sealing (if Vault is enabled)
	var vaultCheck vaultHealth
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - initializing evidence sealing")
		vaultClient, err := vault.NewClient(ctx, &cfg.Vault)
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}
		deps.Sealer = vaultClient
		vaultCheck = vaultClient
		slog.Info("Evidence sealing initialized", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - signature evidence will not be recorded")
	}

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	resolver := workflow.NewResolver(employeeRepo, cfg.Workflow.MaxSigners, cfg.Workflow.Concurrency)
	engine := signing.NewEngine(deps, cfg.OpenSign.WebhookSecret)
	assignmentService := service.NewAssignmentService(templateRepo, assignmentRepo, resolver, employeeRepo, emailService)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(
		assignmentRepo,
		templateRepo,
		reconciliationRepo,
		provider,
		emailService,
		objectStore,
		employeeRepo,
		&cfg.Scheduler,
	)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService)
	rbacMw := middleware.NewRBACMiddleware()
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	rateLimiter := middleware.NewRateLimiter(limiterCtx, &cfg.RateLimit)

	// Initialize handlers
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService, engine, signerRepo)
	signingHandler := handlers.NewSigningHandler(engine)
	webhookHandler := handlers.NewWebhookHandler(engine)
	auditHandler := handlers.NewAuditHandler(auditRepo, assignmentRepo)
	taskHandler := handlers.NewTaskHandler(taskRepo)

	// Setup router
	mux := http.NewServeMux()

	// Provider callbacks authenticate by body signature
	mux.HandleFunc("POST /api/v1/webhooks/opensign", webhookHandler.OpenSign)

	// Protected routes
	mux.Handle("GET /api/v1/assignments/my", protected(authMw, assignmentHandler.ListMine))
	mux.Handle("GET /api/v1/assignments/{id}", protected(authMw, assignmentHandler.Get))
	mux.Handle("POST /api/v1/assignments/{id}/sign", protected(authMw, signingHandler.Sign))
	mux.Handle("GET /api/v1/tasks/my", protected(authMw, taskHandler.ListMine))

	// Admin routes
	mux.Handle("POST /api/v1/admin/assignments", adminOnly(authMw, rbacMw, assignmentHandler.CreateAssignments))
	mux.Handle("POST /api/v1/admin/assignments/{id}/dispatch", adminOnly(authMw, rbacMw, assignmentHandler.Dispatch))
	mux.Handle("GET /api/v1/admin/assignments/{id}/audit", adminOnly(authMw, rbacMw, auditHandler.ListAssignmentAudit))

	// Health check endpoint
	mux.HandleFunc("GET /health", healthHandler(cfg.App.Version, db, vaultCheck))

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
