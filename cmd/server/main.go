package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"

	"github.com/masdar-tech/be-ideas-workflow/internal/client"
	"github.com/masdar-tech/be-ideas-workflow/internal/config"
	"github.com/masdar-tech/be-ideas-workflow/internal/database"
	"github.com/masdar-tech/be-ideas-workflow/internal/handler"
	"github.com/masdar-tech/be-ideas-workflow/internal/repository"
	"github.com/masdar-tech/be-ideas-workflow/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := config.NewLogger(cfg.Service)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Ideas Workflow Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize NATS. Publishing is optional: without a URL (or on a failed
	// connect) the service runs with notifications and audit export disabled.
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; continuing without publishing")
			natsConn = nil
		} else {
			defer natsConn.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}

	notifier := client.NewNotificationPublisher(natsConn, cfg.NATS.PublishTimeout, log)
	auditor := client.NewAuditPublisher(natsConn, cfg.NATS.PublishTimeout, log)

	// Initialize repositories
	requestRepo := repository.NewRequestRepository(db)
	transitionRepo := repository.NewTransitionRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	pathRepo := repository.NewWorkflowPathRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)

	// Resolve the intake department once; every operation depends on it.
	intakeID := cfg.Workflow.IntakeDepartmentID
	if intakeID == "" {
		intake, err := departmentRepo.IntakeDepartment(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to resolve intake department")
		}
		intakeID = intake.ID
	}
	log.Info().Str("intake_department_id", intakeID).Msg("Intake department resolved")

	// Initialize services
	authorizer := service.NewMembershipAuthorizer(departmentRepo, intakeID)
	workflowService := service.NewWorkflowService(
		requestRepo, transitionRepo, departmentRepo, pathRepo,
		authorizer, notifier, auditor, intakeID, log)
	evaluationService := service.NewEvaluationService(
		evaluationRepo, requestRepo, authorizer, auditor, intakeID, log)
	slaService := service.NewSLAService(requestRepo, departmentRepo, notifier, service.SLAThresholds{
		IntakeReviewDays:    cfg.SLA.IntakeReviewDays,
		ManagerReviewDays:   cfg.SLA.ManagerReviewDays,
		EmployeeWorkDays:    cfg.SLA.EmployeeWorkDays,
		FinalValidationDays: cfg.SLA.FinalValidationDays,
	}, log)

	// Schedule the SLA sweep
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.SLA.SweepSchedule, func() {
		sweepCtx, sweepCancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer sweepCancel()

		result, err := slaService.Sweep(sweepCtx)
		if err != nil {
			log.Error().Err(err).Msg("SLA sweep failed")
			return
		}
		log.Info().Int("reminders", result.Total()).Msg("Scheduled SLA sweep finished")
	})
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SLA.SweepSchedule).Msg("Invalid SLA sweep schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("schedule", cfg.SLA.SweepSchedule).Msg("SLA sweep scheduled")

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(
		workflowService, evaluationService, requestRepo, departmentRepo, pathRepo, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	httpHandler.Register(mux)

	// Apply middleware
	var h http.Handler = mux
	h = handler.RequestID(h)
	h = handler.Logger(&log)(h)
	h = handler.Recovery(&log)(h)
	h = handler.CORS([]string{"*"})(h)
	h = handler.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
