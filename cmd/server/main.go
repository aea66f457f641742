package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventroster/config"
	_ "eventroster/docs"
	"eventroster/internal/adapters/auth"
	"eventroster/internal/adapters/notify"
	httpDelivery "eventroster/internal/delivery/http"
	"eventroster/internal/delivery/http/controllers"
	"eventroster/internal/delivery/http/middleware"
	"eventroster/internal/domain"
	memoryRepo "eventroster/internal/repository/memory"
	mongoRepo "eventroster/internal/repository/mongo"
	postgresRepo "eventroster/internal/repository/postgres"
	"eventroster/internal/services"
)

const serviceTimeout = 5 * time.Second

// @title Event Roster API
// @version 1.0
// @description Event templates, slot registration, and reminders for communities.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}
	logger := config.NewLogger()

	var (
		templateRepo domain.TemplateRepository
		eventRepo    domain.EventRepository
	)

	switch cfg.DBDriver {
	case "postgres":
		db, err := postgresRepo.Open(cfg.DBUrl)
		if err != nil {
			logger.Error("postgres connection failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		templateRepo = postgresRepo.NewTemplateRepository(db)
		eventRepo = postgresRepo.NewEventRepository(db)
		logger.Info("storage ready", "driver", "postgres")
	case "mongo":
		client, mdb, err := mongoRepo.Connect(context.Background(), cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Error("mongo connection failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		templateRepo = mongoRepo.NewTemplateRepository(mdb.Collection(mongoRepo.TemplatesCollection))
		eventRepo = mongoRepo.NewEventRepository(mdb.Collection(mongoRepo.EventsCollection))
		logger.Info("storage ready", "driver", "mongo", "database", cfg.MongoDatabase)
	case "memory":
		templateRepo = memoryRepo.NewTemplateRepository()
		eventRepo = memoryRepo.NewEventRepository()
		logger.Info("storage ready", "driver", "memory")
	default:
		logger.Error("unknown DB_DRIVER", "driver", cfg.DBDriver)
		os.Exit(1)
	}

	templateSvc := services.NewTemplateService(templateRepo, serviceTimeout)
	eventSvc := services.NewEventService(eventRepo, templateRepo, serviceTimeout)
	registrationSvc := services.NewRegistrationService(eventRepo, serviceTimeout)

	notifier, err := notify.NewNotifier(notify.Config{
		Provider:    cfg.NotifierProvider,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
		SES: notify.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	}, logger)
	if err != nil {
		logger.Error("notifier initialization failed", "err", err)
		os.Exit(1)
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler := services.NewReminderScheduler(eventRepo, notifier, logger, cfg.ReminderLead, cfg.ReminderTick)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(schedulerCtx)
	}()
	logger.Info("reminder scheduler started", "lead", cfg.ReminderLead, "tick", cfg.ReminderTick)

	codec := auth.NewTokenCodec(cfg.TokenSecret)
	templateCtrl := controllers.NewTemplateController(logger, templateSvc)
	eventCtrl := controllers.NewEventController(logger, eventSvc)
	registrationCtrl := controllers.NewRegistrationController(logger, registrationSvc)

	mux := httpDelivery.NewRouter(templateCtrl, eventCtrl, registrationCtrl, codec, logger)
	var handler http.Handler = middleware.LoggingMiddleware(logger, mux)
	if len(cfg.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.CORSAllowedOrigins, handler)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	stopScheduler()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	<-schedulerDone
}
